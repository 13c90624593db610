package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/cli"
)

var (
	productsAll  bool
	productsType string
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List catalog products",
	Long: `List the products of the catalog. Inactive products are hidden unless --all is set.

Examples:
  configurator products
  configurator products --type hot_tub --format json
  configurator products --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		snap, err := loadSnapshot(cmd.Context(), profile.Catalog)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}

		var products []catalog.Product
		for _, p := range snap.Products() {
			if !productsAll && !p.Active {
				continue
			}
			if productsType != "" && p.Type != productsType {
				continue
			}
			products = append(products, p)
		}

		if !quiet {
			if len(products) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No products found")
				return nil
			}
			return cli.PrintProducts(cmd.OutOrStdout(), products, outputFormat())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.Flags().BoolVar(&productsAll, "all", false, "Include inactive products")
	productsCmd.Flags().StringVar(&productsType, "type", "", "Only products of this type")
}
