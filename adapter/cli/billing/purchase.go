package billing

import (
	"errors"
	"fmt"

	"github.com/plumeapp/plume/adapter/cli"
	"github.com/plumeapp/plume/internal/entitlements/application"
	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/spf13/cobra"
)

var purchaseCmd = &cobra.Command{
	Use:   "purchase <product-id>",
	Short: "Purchase a subscription product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Engine == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Purchasing requires store connection.")
			return nil
		}

		pending, err := app.Engine.Purchase(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		result, err := pending.Wait(cmd.Context())
		if err != nil {
			return err
		}
		return reportOutcome(cmd, result)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore previously purchased subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Engine == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Restoring requires store connection.")
			return nil
		}

		pending, err := app.Engine.Restore(cmd.Context())
		if err != nil {
			return err
		}

		result, err := pending.Wait(cmd.Context())
		if err != nil {
			return err
		}
		return reportOutcome(cmd, result)
	},
}

func reportOutcome(cmd *cobra.Command, result application.Result) error {
	switch {
	case result.Err == nil && result.Period != domain.PeriodNone:
		fmt.Fprintf(cmd.OutOrStdout(), "Subscription active: %s\n", result.Period)
		return nil
	case result.Err == nil:
		fmt.Fprintln(cmd.OutOrStdout(), "No active subscription found.")
		return nil
	case errors.Is(result.Err, domain.ErrPurchaseCancelled):
		fmt.Fprintln(cmd.OutOrStdout(), "Purchase cancelled.")
		return nil
	default:
		return result.Err
	}
}
