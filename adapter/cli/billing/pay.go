package billing

import (
	"fmt"

	"github.com/felixgeelhaar/billcycle/internal/billing/application/commands"
	"github.com/spf13/cobra"
)

var payStatus string

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Record the payment outcome of the open invoice",
	Long: `Record a payment against the open invoice of the user's expired
subscription. SUCCESS pays the invoice and starts a new cycle, PENDING marks
the invoice overdue and FAILED leaves it open.

Examples:
  billcycle billing pay --user 550e8400-e29b-41d4-a716-446655440000 --status success`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		id, err := userID()
		if err != nil {
			return err
		}
		status, err := commands.ParsePaymentStatus(payStatus)
		if err != nil {
			return err
		}

		result, err := app.RecordPaymentHandler.Handle(cmd.Context(), commands.RecordPaymentCommand{
			UserID: id,
			Status: status,
		})
		if err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Invoice %s is %s\n", result.InvoiceID, result.InvoiceStatus)
		fmt.Fprintf(out, "Subscription %s is %s (ends %s)\n", result.SubscriptionID, result.SubscriptionStatus, result.EndDate)
		return nil
	},
}

func init() {
	payCmd.Flags().StringVarP(&payStatus, "status", "s", string(commands.PaymentSuccess), "payment status (SUCCESS, PENDING, FAILED)")
}
