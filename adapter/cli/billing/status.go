package billing

import (
	"fmt"
	"time"

	"github.com/plumeapp/plume/adapter/cli"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show subscription status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SubscriptionRepo == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Subscription status requires database connection.")
			return nil
		}

		subscription, err := app.SubscriptionRepo.FindByUserID(cmd.Context(), app.CurrentUserID)
		if err != nil {
			return err
		}
		if subscription == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No subscription found.")
			return nil
		}

		state := "expired"
		if subscription.IsActive(time.Now()) {
			state = "active"
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Subscription: %s (%s, %s)\n",
			subscription.ProductID, subscription.Period, state)
		fmt.Fprintf(cmd.OutOrStdout(), "Started: %s\n", subscription.StartsAt.Local().Format(time.RFC1123))
		if subscription.EndsAt != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Ends: %s\n", subscription.EndsAt.Local().Format(time.RFC1123))
		}

		return nil
	},
}
