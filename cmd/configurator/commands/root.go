package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/cli"
	"github.com/TimurManjosov/goconfigurator/internal/config"
	"github.com/TimurManjosov/goconfigurator/internal/evaluation"
	"github.com/TimurManjosov/goconfigurator/internal/logging"
	"github.com/TimurManjosov/goconfigurator/internal/telemetry"
)

var (
	// Global flags
	catalogPath string
	profileName string
	format      string
	logLevel    string
	quiet       bool
	verbose     bool

	// Set up by the root pre-run.
	appCfg   *config.Config
	logger   = zerolog.Nop()
	registry *prometheus.Registry
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "configurator",
	Short: "Resolve build-to-order product configurations",
	Long: `Configurator resolves a buyer's option selection for a build-to-order product
(hot tub, sauna, cold plunge) against a catalog of options and rules, and prints
the resolved configuration with its price breakdown.

Examples:
  configurator validate --catalog catalog.yaml
  configurator products
  configurator evaluate --product aurora-200 --selection selection.json
  configurator evaluate --product aurora-200 --answer persons=6 --format json
  configurator watch --product aurora-200 --selection selection.json`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: flushMetrics,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog file (overrides profile and CATALOG_PATH)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Catalog profile from ~/.configurator/config.yaml")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output (debug logging)")
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	switch {
	case logLevel != "":
		cfg.LogLevel = logLevel
	case verbose:
		cfg.LogLevel = "debug"
	case quiet:
		cfg.LogLevel = "error"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := cli.ParseFormat(format); err != nil {
		return err
	}

	logger, err = logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	registry = prometheus.NewRegistry()
	telemetry.Init(registry)
	appCfg = cfg
	return nil
}

func flushMetrics(cmd *cobra.Command, args []string) error {
	if appCfg == nil || appCfg.MetricsFile == "" {
		return nil
	}
	if err := telemetry.WriteTextfile(appCfg.MetricsFile, registry); err != nil {
		return err
	}
	logger.Debug().Str("path", appCfg.MetricsFile).Msg("metrics written")
	return nil
}

func outputFormat() cli.OutputFormat {
	f, _ := cli.ParseFormat(format)
	return f
}

// resolveProfile returns the catalog profile for this invocation.
func resolveProfile() (cli.Profile, error) {
	return cli.ResolveProfile(profileName, catalogPath, appCfg.CatalogPath)
}

// loadSnapshot loads and validates the catalog of the resolved profile.
func loadSnapshot(ctx context.Context, path string) (*catalog.Snapshot, error) {
	src, err := catalog.NewSource("file", path)
	if err != nil {
		return nil, err
	}
	snap, err := catalog.LoadSnapshot(ctx, src)
	if err != nil {
		return nil, err
	}
	telemetry.SnapshotOptions.Set(float64(len(snap.Options())))
	logger.Debug().
		Str("source", src.Describe()).
		Str("version", snap.Version).
		Str("etag", snap.ETag).
		Int("options", len(snap.Options())).
		Msg("catalog loaded")
	return snap, nil
}

func newEvaluator(src evaluation.SnapshotSource) *evaluation.Evaluator {
	return evaluation.NewEvaluator(src, logger, evaluation.Settings{
		MaxPasses:   appCfg.RulePassLimit,
		Concurrency: appCfg.BatchConcurrency,
	})
}
