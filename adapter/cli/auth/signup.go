package auth

import (
	"fmt"

	"github.com/felixgeelhaar/billcycle/internal/identity/application/auth"
	"github.com/spf13/cobra"
)

var (
	signupUsername string
	signupEmail    string
	signupPassword string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a user account",
	Long: `Create a user account. The password is prompted for when --password is
not given.

Examples:
  billcycle auth signup --username asha --email asha@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		password, err := passwordOrPrompt(signupPassword, "Password: ")
		if err != nil {
			return err
		}

		user, err := app.SignupHandler.Handle(cmd.Context(), auth.SignupCommand{
			Username: signupUsername,
			Email:    signupEmail,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("failed to sign up: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Account created!")
		fmt.Fprintf(cmd.OutOrStdout(), "  User ID:  %s\n", user.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "  Username: %s\n", user.Username)
		fmt.Fprintf(cmd.OutOrStdout(), "  Email:    %s\n", user.Email)
		return nil
	},
}

func init() {
	signupCmd.Flags().StringVar(&signupUsername, "username", "", "username")
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "email address")
	signupCmd.Flags().StringVar(&signupPassword, "password", "", "password (prompted when empty)")
	_ = signupCmd.MarkFlagRequired("username")
	_ = signupCmd.MarkFlagRequired("email")
}
