// Package billing contains the CLI commands for store subscriptions.
package billing

import "github.com/spf13/cobra"

// Cmd is the billing command group.
var Cmd = &cobra.Command{
	Use:   "billing",
	Short: "Manage store subscriptions",
	Long:  `Inspect subscription status, purchase products, and restore past purchases.`,
}

func init() {
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(productsCmd)
	Cmd.AddCommand(purchaseCmd)
	Cmd.AddCommand(restoreCmd)
}
