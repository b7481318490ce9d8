package billing

import (
	"fmt"

	"github.com/spf13/cobra"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List the plan catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		plans, err := app.ListPlansHandler.Handle(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list plans: %w", err)
		}
		if len(plans) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No plans found. Run 'billcycle billing plans seed'.")
			return nil
		}

		for _, p := range plans {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %10s\n", p.Name, p.Price.StringFixed(2))
		}
		return nil
	},
}

var plansSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default plans that are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		result, err := app.SeedPlansHandler.Handle(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to seed plans: %w", err)
		}
		if len(result.Created) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog already complete.")
			return nil
		}
		for _, name := range result.Created {
			fmt.Fprintf(cmd.OutOrStdout(), "Created plan %s\n", name)
		}
		return nil
	},
}

func init() {
	plansCmd.AddCommand(plansSeedCmd)
}
