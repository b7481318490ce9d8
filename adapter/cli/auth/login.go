package auth

import (
	"fmt"

	"github.com/felixgeelhaar/billcycle/internal/identity/application/auth"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check a user's credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		password, err := passwordOrPrompt(loginPassword, "Password: ")
		if err != nil {
			return err
		}

		user, err := app.AuthenticateHandler.Handle(cmd.Context(), auth.AuthenticateQuery{
			Email:    loginEmail,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "email address")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when empty)")
	_ = loginCmd.MarkFlagRequired("email")
}
