package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goconfigurator/internal/answers"
	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/cli"
	"github.com/TimurManjosov/goconfigurator/internal/evaluation"
)

var (
	evalProduct   string
	evalSelection string
	evalTouched   []string
	evalAnswers   []string
	evalBatch     string
	evalStrict    bool
	evalNested    bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a selection for a product",
	Long: `Resolve a selection for one product and print the resolved options,
requirements, findings and price breakdown.

The selection file holds group keys mapped to option keys (JSON or YAML);
"-" reads it from stdin. Answers are key=value pairs; values are parsed as
JSON when possible (numbers, booleans) and kept as strings otherwise.

With --nested, only the resolved selections are printed, grouped by topic
(HEATING_BASE under heating/base).

With --batch, the file holds a list of requests
({product, selections, touched, answers}) evaluated concurrently.

Examples:
  configurator evaluate --product aurora-200 --selection selection.json
  configurator evaluate --product aurora-200 --touched FILTRATION_BASE --answer persons=6
  echo '{"HEATING_BASE":"HEATER-WOOD"}' | configurator evaluate --product aurora-200 --selection -
  configurator evaluate --product aurora-200 --selection selection.yaml --nested
  configurator evaluate --batch requests.yaml --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		snap, err := loadSnapshot(cmd.Context(), profile.Catalog)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		ev := newEvaluator(catalog.NewHolder(snap))

		if evalBatch != "" {
			return runBatch(cmd, ev)
		}

		req, err := buildRequest(cmd.InOrStdin(), profile.Product)
		if err != nil {
			return err
		}
		resp, err := ev.Evaluate(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("failed to evaluate: %w", err)
		}

		switch {
		case quiet:
		case evalNested:
			if err := cli.PrintNested(cmd.OutOrStdout(), resp.ResolvedSelections, outputFormat()); err != nil {
				return err
			}
		default:
			if err := cli.PrintResponse(cmd.OutOrStdout(), resp, outputFormat()); err != nil {
				return err
			}
		}
		if evalStrict && !resp.Valid() {
			return fmt.Errorf("configuration has %d validation error(s)", len(resp.ValidationErrors))
		}
		return nil
	},
}

func buildRequest(stdin io.Reader, defaultProduct string) (evaluation.Request, error) {
	product := evalProduct
	if product == "" {
		product = defaultProduct
	}
	if product == "" {
		return evaluation.Request{}, errors.New("--product is required (or set a product on the profile)")
	}

	req := evaluation.Request{Product: product, Touched: evalTouched}
	if evalSelection != "" {
		raw, err := readInput(evalSelection, stdin)
		if err != nil {
			return evaluation.Request{}, err
		}
		var sel any
		if err := yaml.Unmarshal(raw, &sel); err != nil {
			return evaluation.Request{}, fmt.Errorf("failed to parse selection: %w", err)
		}
		req.Selections = sel
	}

	bag, err := parseAnswers(evalAnswers)
	if err != nil {
		return evaluation.Request{}, err
	}
	req.Answers = bag
	return req, nil
}

// parseAnswers turns key=value pairs into an answers bag.
func parseAnswers(pairs []string) (answers.Bag, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	bag := make(answers.Bag, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid answer %q, expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		bag[key] = v
	}
	return bag, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func runBatch(cmd *cobra.Command, ev *evaluation.Evaluator) error {
	raw, err := readInput(evalBatch, cmd.InOrStdin())
	if err != nil {
		return err
	}
	var reqs []evaluation.Request
	if err := yaml.Unmarshal(raw, &reqs); err != nil {
		return fmt.Errorf("failed to parse batch: %w", err)
	}

	items, err := ev.EvaluateBatch(cmd.Context(), reqs)
	if err != nil {
		return fmt.Errorf("batch aborted: %w", err)
	}
	if quiet {
		return nil
	}

	if f := outputFormat(); f != cli.FormatTable {
		return cli.PrintBatch(cmd.OutOrStdout(), items, f)
	}
	out := cmd.OutOrStdout()
	for i, item := range items {
		if item.Error != "" {
			fmt.Fprintf(out, "[%d] %s: %s\n\n", i, reqs[i].Product, item.Error)
			continue
		}
		fmt.Fprintf(out, "[%d] ", i)
		if err := cli.PrintResponse(out, item.Response, cli.FormatTable); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVarP(&evalProduct, "product", "p", "", "Product id or slug")
	evaluateCmd.Flags().StringVarP(&evalSelection, "selection", "s", "", "Selection file (JSON or YAML, - for stdin)")
	evaluateCmd.Flags().StringSliceVar(&evalTouched, "touched", nil, "Option or group keys the buyer edited")
	evaluateCmd.Flags().StringArrayVarP(&evalAnswers, "answer", "a", nil, "Answer as key=value (repeatable)")
	evaluateCmd.Flags().StringVar(&evalBatch, "batch", "", "Batch request file (JSON or YAML list)")
	evaluateCmd.Flags().BoolVar(&evalStrict, "strict", false, "Exit non-zero when validation errors remain")
	evaluateCmd.Flags().BoolVar(&evalNested, "nested", false, "Print only the resolved selections, grouped by topic")
}
