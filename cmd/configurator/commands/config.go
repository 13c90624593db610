package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigurator/internal/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage catalog profiles",
	Long:  `Manage named catalog profiles in ~/.configurator/config.yaml.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Long: `Display the configured profiles.

Example:
  configurator config list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Default Profile: %s\n\n", cfg.DefaultProfile)
		fmt.Fprintln(out, "Profiles:")
		for _, name := range cfg.ProfileNames() {
			p := cfg.Profiles[name]
			fmt.Fprintf(out, "  %s:\n", name)
			fmt.Fprintf(out, "    catalog: %s\n", p.Catalog)
			if p.Product != "" {
				fmt.Fprintf(out, "    product: %s\n", p.Product)
			}
		}

		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <profile.key>",
	Short: "Get a profile value",
	Long: `Get a specific profile value.

Examples:
  configurator config get shop.catalog
  configurator config get shop.product`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name, key, err := splitProfileKey(args[0])
		if err != nil {
			return err
		}

		p, ok := cfg.Profiles[name]
		if !ok {
			return fmt.Errorf("profile '%s' not found", name)
		}

		switch key {
		case "catalog":
			fmt.Fprintln(cmd.OutOrStdout(), p.Catalog)
		case "product":
			fmt.Fprintln(cmd.OutOrStdout(), p.Product)
		default:
			return fmt.Errorf("unknown key '%s', valid keys: catalog, product", key)
		}

		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <profile.key> <value>",
	Short: "Set a profile value",
	Long: `Set a specific profile value. The profile is created if needed; the first
profile created becomes the default.

Examples:
  configurator config set shop.catalog /srv/catalog/catalog.yaml
  configurator config set shop.product aurora-200`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name, key, err := splitProfileKey(args[0])
		if err != nil {
			return err
		}
		value := args[1]

		p := cfg.Profiles[name]
		switch key {
		case "catalog":
			p.Catalog = value
		case "product":
			p.Product = value
		default:
			return fmt.Errorf("unknown key '%s', valid keys: catalog, product", key)
		}

		cfg.Profiles[name] = p
		if cfg.DefaultProfile == "" {
			cfg.DefaultProfile = name
		}

		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully set %s.%s\n", name, key)
		}
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <profile>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if _, ok := cfg.Profiles[args[0]]; !ok {
			return fmt.Errorf("profile '%s' not found", args[0])
		}
		cfg.DefaultProfile = args[0]
		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Default profile is now %s\n", args[0])
		}
		return nil
	},
}

func splitProfileKey(s string) (string, string, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid key format, expected 'profile.key' (e.g., 'shop.catalog')")
	}
	return parts[0], parts[1], nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUseCmd)
}
