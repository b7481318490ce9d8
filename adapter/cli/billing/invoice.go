package billing

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/application/queries"
	"github.com/spf13/cobra"
)

var invoiceCmd = &cobra.Command{
	Use:     "invoice",
	Aliases: []string{"status"},
	Short:   "Show the user's subscription and latest invoice",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		id, err := userID()
		if err != nil {
			return err
		}

		view, err := app.GetSubscriptionInvoiceHandler.Handle(cmd.Context(), queries.GetSubscriptionInvoiceQuery{UserID: id})
		if err != nil {
			return fmt.Errorf("failed to load subscription: %w", err)
		}

		out := cmd.OutOrStdout()
		sub := view.Subscription
		fmt.Fprintf(out, "Subscription: %s (%s)\n", sub.Plan, sub.Status)
		fmt.Fprintf(out, "  ID:      %s\n", sub.ID)
		fmt.Fprintf(out, "  Price:   %s\n", sub.Price.StringFixed(2))
		fmt.Fprintf(out, "  Started: %s\n", sub.StartAt.Format(time.RFC1123))
		fmt.Fprintf(out, "  Ends:    %s\n", sub.EndDate)

		if view.Invoice == nil {
			fmt.Fprintln(out, "No invoice yet.")
			return nil
		}
		inv := view.Invoice
		fmt.Fprintf(out, "Invoice: %s (%s)\n", inv.ID, inv.Status)
		fmt.Fprintf(out, "  Amount: %s\n", inv.Amount.StringFixed(2))
		fmt.Fprintf(out, "  Issued: %s\n", inv.IssueDate)
		fmt.Fprintf(out, "  Due:    %s\n", inv.DueDate)
		return nil
	},
}
