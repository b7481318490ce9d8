package auth

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/identity/application/auth"
	"github.com/spf13/cobra"
)

var (
	forgotEmail   string
	resetToken    string
	resetPassword string
)

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Issue a password reset token",
	Long: `Issue a one-time password reset token for the account. The token is
printed so an operator can deliver it; it can be used once before it expires.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		if app.ForgotPasswordHandler == nil {
			return ErrPasswordResetUnavailable
		}

		result, err := app.ForgotPasswordHandler.Handle(cmd.Context(), auth.ForgotPasswordCommand{Email: forgotEmail})
		if err != nil {
			return fmt.Errorf("failed to issue reset token: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Reset token: %s\n", result.Token)
		fmt.Fprintf(cmd.OutOrStdout(), "Expires:     %s\n", result.ExpiresAt.Format(time.RFC1123))
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password with a reset token",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		if app.ResetPasswordHandler == nil {
			return ErrPasswordResetUnavailable
		}
		password, err := passwordOrPrompt(resetPassword, "New password: ")
		if err != nil {
			return err
		}

		user, err := app.ResetPasswordHandler.Handle(cmd.Context(), auth.ResetPasswordCommand{
			Token:       resetToken,
			NewPassword: password,
		})
		if err != nil {
			return fmt.Errorf("failed to reset password: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s.\n", user.Username)
		return nil
	},
}

func init() {
	forgotPasswordCmd.Flags().StringVar(&forgotEmail, "email", "", "email address")
	_ = forgotPasswordCmd.MarkFlagRequired("email")

	resetPasswordCmd.Flags().StringVar(&resetToken, "token", "", "reset token")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "new password (prompted when empty)")
	_ = resetPasswordCmd.MarkFlagRequired("token")
}
