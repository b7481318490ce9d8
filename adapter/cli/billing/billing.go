package billing

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/billcycle/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd is the billing command group.
var Cmd = &cobra.Command{
	Use:   "billing",
	Short: "Manage subscriptions, invoices and payments",
	Long:  `Subscribe users to plans, inspect their latest invoice and record payments.`,
}

var errNoApp = errors.New("billing commands require a database connection")

var userFlag string

func init() {
	Cmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user ID")

	Cmd.AddCommand(plansCmd)
	Cmd.AddCommand(subscribeCmd)
	Cmd.AddCommand(unsubscribeCmd)
	Cmd.AddCommand(payCmd)
	Cmd.AddCommand(invoiceCmd)
	Cmd.AddCommand(sweepCmd)
}

func requireApp() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil {
		return nil, errNoApp
	}
	return app, nil
}

func userID() (uuid.UUID, error) {
	if userFlag == "" {
		return uuid.Nil, errors.New("missing --user")
	}
	id, err := uuid.Parse(userFlag)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID: %w", err)
	}
	return id, nil
}
