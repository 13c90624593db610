package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/evaluation"
	"github.com/TimurManjosov/goconfigurator/internal/pricing"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// PrintProducts outputs products in the specified format
func PrintProducts(w io.Writer, products []catalog.Product, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]catalog.Product{"products": products})
	case FormatYAML:
		return printYAML(w, map[string][]catalog.Product{"products": products})
	case FormatTable:
		return printProductTable(w, products)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintResponse outputs an evaluation in the specified format. The table form
// shows the price breakdown followed by the findings.
func PrintResponse(w io.Writer, resp *evaluation.Response, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, resp)
	case FormatYAML:
		return printYAML(w, toYAMLValue(resp))
	case FormatTable:
		return printResponseTable(w, resp)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintNested outputs a selection grouped by topic, e.g. HEATING_BASE under
// heating/base. Empty groups are kept in JSON and YAML and skipped in tables.
func PrintNested(w io.Writer, sel selection.Selection, format OutputFormat) error {
	topics := sel.Topics()
	switch format {
	case FormatJSON:
		return printJSON(w, topics)
	case FormatYAML:
		return printYAML(w, topics)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Topic", "Section", "Options")
		for _, topic := range sortedKeys(topics) {
			for _, sub := range sortedKeys(topics[topic]) {
				keys := topics[topic][sub]
				if len(keys) == 0 {
					continue
				}
				table.Append(topic, sub, strings.Join(keys, ", "))
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintBatch outputs batch items as JSON or YAML.
func PrintBatch(w io.Writer, items []evaluation.BatchItem, format OutputFormat) error {
	payload := map[string][]evaluation.BatchItem{"items": items}
	switch format {
	case FormatJSON:
		return printJSON(w, payload)
	case FormatYAML:
		return printYAML(w, toYAMLValue(payload))
	default:
		return fmt.Errorf("unsupported format for batch output: %s", format)
	}
}

// Summary describes a loaded catalog.
type Summary struct {
	Source   string `json:"source" yaml:"source"`
	Version  string `json:"version" yaml:"version"`
	ETag     string `json:"etag" yaml:"etag"`
	Products int    `json:"products" yaml:"products"`
	Groups   int    `json:"groups" yaml:"groups"`
	Options  int    `json:"options" yaml:"options"`
	Rules    int    `json:"rules" yaml:"rules"`
	Active   int    `json:"activeRules" yaml:"activeRules"`
}

// Summarize counts the contents of snap.
func Summarize(source string, snap *catalog.Snapshot) Summary {
	return Summary{
		Source:   source,
		Version:  snap.Version,
		ETag:     snap.ETag,
		Products: len(snap.Products()),
		Groups:   len(snap.Groups()),
		Options:  len(snap.Options()),
		Rules:    snap.Rules().Total(),
		Active:   snap.Rules().Len(),
	}
}

// PrintSummary outputs a catalog summary in the specified format
func PrintSummary(w io.Writer, s Summary, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, s)
	case FormatYAML:
		return printYAML(w, s)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Source", "Version", "ETag", "Products", "Groups", "Options", "Rules")
		table.Append(
			s.Source,
			s.Version,
			s.ETag,
			fmt.Sprint(s.Products),
			fmt.Sprint(s.Groups),
			fmt.Sprint(s.Options),
			fmt.Sprintf("%d (%d active)", s.Rules, s.Active),
		)
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

// toYAMLValue round-trips v through JSON so YAML output uses the JSON field
// names and decimal strings instead of Go struct internals.
func toYAMLValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func printProductTable(w io.Writer, products []catalog.Product) error {
	table := tablewriter.NewWriter(w)

	table.Header("ID", "Slug", "Type", "Name", "Base Price", "Tax Rate", "Model", "Active")

	for _, p := range products {
		active := "false"
		if p.Active {
			active = "true"
		}

		name := p.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}

		table.Append(
			p.ID,
			p.Slug,
			p.Type,
			name,
			p.BasePrice.StringFixed(pricing.Places),
			p.TaxRate.String(),
			p.ModelKey(),
			active,
		)
	}

	return table.Render()
}

func printResponseTable(w io.Writer, resp *evaluation.Response) error {
	fmt.Fprintf(w, "Evaluation %s (product %s, catalog %s)\n\n", resp.ID, resp.ProductID, resp.ETag)

	table := tablewriter.NewWriter(w)
	table.Header("Type", "Key", "Name", "Qty", "Excl.", "Tax", "Incl.")
	for _, l := range resp.Pricing.Lines {
		qty := ""
		if l.Quantity > 0 {
			qty = fmt.Sprint(l.Quantity)
		}
		name := l.Name
		if l.Included {
			name += " (included)"
		}
		table.Append(
			string(l.Type),
			l.Key,
			name,
			qty,
			l.PriceExcl.StringFixed(pricing.Places),
			l.TaxRate.String(),
			l.PriceIncl.StringFixed(pricing.Places),
		)
	}
	table.Footer("", "", "Total", "",
		resp.Pricing.TotalExcl.StringFixed(pricing.Places),
		resp.Pricing.VATTotal.StringFixed(pricing.Places),
		resp.Pricing.TotalIncl.StringFixed(pricing.Places),
	)
	if err := table.Render(); err != nil {
		return err
	}

	selected := 0
	for _, g := range resp.ResolvedSelections.Keys() {
		if len(resp.ResolvedSelections[g]) > 0 {
			selected++
		}
	}
	printSection(w, "Selections", selected, func() {
		for _, g := range resp.ResolvedSelections.Keys() {
			if keys := resp.ResolvedSelections[g]; len(keys) > 0 {
				fmt.Fprintf(w, "  - %s: %s\n", g, strings.Join(keys, ", "))
			}
		}
	})
	printSection(w, "Requirements", len(resp.Requirements), func() {
		for _, r := range resp.Requirements {
			fmt.Fprintf(w, "  - %s: %s\n", r.Key, r.Message)
		}
	})
	printSection(w, "Validation errors", len(resp.ValidationErrors), func() {
		for _, e := range resp.ValidationErrors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	})
	printSection(w, "Disabled", len(resp.DisabledOptions), func() { printReasons(w, resp.DisabledOptions) })
	printSection(w, "Hidden", len(resp.HiddenOptions), func() { printReasons(w, resp.HiddenOptions) })
	printSection(w, "Recommendations", len(resp.Recommendations), func() {
		for _, r := range resp.Recommendations {
			fmt.Fprintf(w, "  - %s: %s\n", r.Key, r.Reason)
		}
	})
	printSection(w, "Warnings", len(resp.Warnings), func() {
		for _, wn := range resp.Warnings {
			if wn.Key != "" {
				fmt.Fprintf(w, "  - %s: %s\n", wn.Key, wn.Message)
				continue
			}
			fmt.Fprintf(w, "  - %s\n", wn.Message)
		}
	})
	return nil
}

func printSection(w io.Writer, title string, n int, body func()) {
	if n == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	body()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printReasons(w io.Writer, m map[string]string) {
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(w, "  - %s: %s\n", k, m[k])
	}
}
