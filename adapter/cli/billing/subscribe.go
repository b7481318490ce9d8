package billing

import (
	"fmt"

	"github.com/felixgeelhaar/billcycle/internal/billing/application/commands"
	"github.com/spf13/cobra"
)

var subscribePlan string

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Subscribe a user to a plan",
	Long: `Start a subscription on the given plan. The billing period starts now
and ends after one cycle in the business timezone.

Examples:
  billcycle billing subscribe --user 550e8400-e29b-41d4-a716-446655440000 --plan pro`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		id, err := userID()
		if err != nil {
			return err
		}

		result, err := app.SubscribeHandler.Handle(cmd.Context(), commands.SubscribeCommand{
			UserID:   id,
			PlanName: subscribePlan,
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Subscribed!")
		fmt.Fprintf(out, "  Subscription: %s\n", result.SubscriptionID)
		fmt.Fprintf(out, "  Plan:         %s\n", result.Plan)
		fmt.Fprintf(out, "  Ends:         %s\n", result.EndDate)
		return nil
	},
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Cancel the user's active subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}
		id, err := userID()
		if err != nil {
			return err
		}

		subID, err := app.UnsubscribeHandler.Handle(cmd.Context(), commands.UnsubscribeCommand{UserID: id})
		if err != nil {
			return fmt.Errorf("failed to unsubscribe: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Subscription %s cancelled.\n", subID)
		return nil
	},
}

func init() {
	subscribeCmd.Flags().StringVarP(&subscribePlan, "plan", "p", "", "plan name (Basic, Pro, Enterprise)")
	_ = subscribeCmd.MarkFlagRequired("plan")
}
