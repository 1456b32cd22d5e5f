package billing

import (
	"fmt"

	"github.com/plumeapp/plume/adapter/cli"
	"github.com/spf13/cobra"
)

// productIDs narrows the listing; empty means the configured defaults.
var productIDs []string

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List purchasable subscription products",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Engine == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Product listing requires store connection.")
			return nil
		}

		ids := productIDs
		if len(ids) == 0 {
			ids = cli.DefaultProductIDs()
		}

		products, err := app.Engine.Products(cmd.Context(), ids)
		if err != nil {
			return err
		}
		if len(products) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No products available.")
			return nil
		}

		for _, p := range products {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-12s %s\n", p.ID, p.Period, p.Price)
		}
		return nil
	},
}

func init() {
	productsCmd.Flags().StringSliceVar(&productIDs, "ids", nil, "product ids to list")
}
