package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/billcycle/adapter/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Cmd is the auth command group.
var Cmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage user accounts",
	Long:  `Sign up, sign in and reset passwords.`,
}

// ErrPasswordResetUnavailable is returned when no reset token store is wired.
var ErrPasswordResetUnavailable = errors.New("password reset requires REDIS_URL")

var errNoApp = errors.New("auth commands require a database connection")

// passwordReader reads a password without echo. Tests replace it.
var passwordReader = func(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no terminal to prompt for a password; pass --password")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func init() {
	Cmd.AddCommand(signupCmd)
	Cmd.AddCommand(loginCmd)
	Cmd.AddCommand(forgotPasswordCmd)
	Cmd.AddCommand(resetPasswordCmd)
}

func requireApp() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil {
		return nil, errNoApp
	}
	return app, nil
}

func passwordOrPrompt(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return passwordReader(prompt)
}
