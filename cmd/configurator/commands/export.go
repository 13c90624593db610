package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
)

var (
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to a file",
	Long: `Validate the catalog and write it back out as YAML or JSON. Useful for
converting between the two formats; the output loads with --catalog.

Examples:
  configurator export --catalog catalog.yaml --format json --output catalog.json
  configurator export > backup.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		src := &catalog.FileSource{Path: profile.Catalog}
		doc, err := src.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		if _, err := catalog.NewSnapshot(doc); err != nil {
			return fmt.Errorf("catalog is invalid: %w", err)
		}

		// Determine output destination
		output := cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			output = f
		}

		// Export based on format
		switch format {
		case "json":
			encoder := json.NewEncoder(output)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(doc); err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
		case "yaml", "table":
			// Default to YAML for export
			encoder := yaml.NewEncoder(output)
			defer encoder.Close()
			encoder.SetIndent(2)
			if err := encoder.Encode(doc); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
		}

		if exportOutput != "" && exportOutput != "-" {
			logger.Info().Str("output", exportOutput).Int("options", len(doc.Options)).Msg("catalog exported")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}
