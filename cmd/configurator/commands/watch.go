package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/cli"
	"github.com/TimurManjosov/goconfigurator/internal/evaluation"
	"github.com/TimurManjosov/goconfigurator/internal/telemetry"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-evaluate a selection whenever the catalog changes",
	Long: `Evaluate a selection, then watch the catalog file and evaluate again each
time it changes. A catalog that fails to load is reported and the last good
one stays in use. Stop with Ctrl-C.

Examples:
  configurator watch --product aurora-200 --selection selection.json
  configurator watch --catalog dev.yaml --product fjord-sauna --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		req, err := buildRequest(cmd.InOrStdin(), profile.Product)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		snap, err := loadSnapshot(ctx, profile.Catalog)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		holder := catalog.NewHolder(snap)
		ev := newEvaluator(holder)

		updates, unsubscribe := holder.Subscribe()
		defer unsubscribe()

		reloader := &catalog.Reloader{
			Source: &catalog.FileSource{Path: profile.Catalog},
			Holder: holder,
			Log:    logger,
		}
		watchErr := make(chan error, 1)
		go func() { watchErr <- reloader.Run(ctx) }()

		if err := evaluateAndPrint(ctx, cmd, ev, req); err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-watchErr:
				return err
			case etag := <-updates:
				telemetry.SnapshotOptions.Set(float64(len(holder.Load().Options())))
				logger.Info().Str("etag", etag).Msg("re-evaluating")
				if err := evaluateAndPrint(ctx, cmd, ev, req); err != nil {
					// The product may be gone from the new catalog; keep watching.
					logger.Error().Err(err).Msg("evaluation failed")
				}
			}
		}
	},
}

func evaluateAndPrint(ctx context.Context, cmd *cobra.Command, ev *evaluation.Evaluator, req evaluation.Request) error {
	resp, err := ev.Evaluate(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to evaluate: %w", err)
	}
	if quiet {
		return nil
	}
	return cli.PrintResponse(cmd.OutOrStdout(), resp, outputFormat())
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&evalProduct, "product", "p", "", "Product id or slug")
	watchCmd.Flags().StringVarP(&evalSelection, "selection", "s", "", "Selection file (JSON or YAML)")
	watchCmd.Flags().StringSliceVar(&evalTouched, "touched", nil, "Option or group keys the buyer edited")
	watchCmd.Flags().StringArrayVarP(&evalAnswers, "answer", "a", nil, "Answer as key=value (repeatable)")
}
