package billing

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/billcycle/internal/billing/application/sweep"
	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/spf13/cobra"
)

var sweepAsOf string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire due subscriptions and issue their invoices",
	Long: `Run one billing sweep. Every active subscription whose end date is on
or before the sweep date is expired and invoiced. The sweep date defaults to
today in the business timezone.

Examples:
  billcycle billing sweep
  billcycle billing sweep --as-of 2025-01-10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		asOf := app.Sweeper.Today()
		if sweepAsOf != "" {
			asOf, err = domain.ParseDate(sweepAsOf)
			if err != nil {
				return fmt.Errorf("invalid --as-of: %w", err)
			}
		}

		result, err := app.Sweeper.Sweep(cmd.Context(), asOf)
		if result != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Sweep %s: selected=%d expired=%d skipped=%d failed=%d\n",
				result.AsOf, result.Selected, result.Expired, result.Skipped, result.Failed)
			if result.Stopped {
				fmt.Fprintln(cmd.OutOrStdout(), "Stopped early; remaining subscriptions are picked up by the next sweep.")
			}
		}

		var partial *sweep.PartialSweepError
		if errors.As(err, &partial) {
			for _, f := range partial.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", f.SubscriptionID, f.Err)
			}
		}
		return err
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepAsOf, "as-of", "", "sweep date (YYYY-MM-DD)")
}
