package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a catalog",
	Long: `Load the catalog, check every reference and compile every rule.
Prints the catalog fingerprint and counts on success.

Examples:
  configurator validate --catalog catalog.yaml
  configurator validate --profile staging --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		snap, err := loadSnapshot(cmd.Context(), profile.Catalog)
		if err != nil {
			return fmt.Errorf("catalog is invalid: %w", err)
		}

		if quiet {
			return nil
		}
		src := &catalog.FileSource{Path: profile.Catalog}
		return cli.PrintSummary(cmd.OutOrStdout(), cli.Summarize(src.Describe(), snap), outputFormat())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
