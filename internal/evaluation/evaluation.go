// Package evaluation resolves a buyer's raw selection for one product into a
// consistent configuration with a price breakdown.
//
// Evaluate is pure: it reads an immutable catalog snapshot and returns a fresh
// Result. The data flow is
//
//	applicability filter -> section pipeline -> rule engine ->
//	section pipeline -> rule engine -> cardinality -> pricing
//
// Testing Guide:
//
// Build a catalog.Document in memory, turn it into a snapshot with
// catalog.NewSnapshot and call Evaluate with a Request. No mocking is needed;
// every stage is tested in its own package and this package tests how they
// compose.
package evaluation

import (
	"fmt"

	"github.com/TimurManjosov/goconfigurator/internal/answers"
	"github.com/TimurManjosov/goconfigurator/internal/applicability"
	"github.com/TimurManjosov/goconfigurator/internal/cardinality"
	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/engine"
	"github.com/TimurManjosov/goconfigurator/internal/pricing"
	"github.com/TimurManjosov/goconfigurator/internal/sections"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
	"github.com/shopspring/decimal"
)

// Request is one evaluation call.
type Request struct {
	// Product is the product id or slug. Evaluate ignores it; the Evaluator
	// service uses it to pick the product.
	Product string `json:"product,omitempty"`
	// Selections is the raw payload: group key -> option key(s), or any
	// nesting of maps and lists whose string leaves are option keys.
	Selections any `json:"selections"`
	// Touched lists option or group keys the buyer edited explicitly.
	Touched []string    `json:"touched,omitempty"`
	Answers answers.Bag `json:"answers,omitempty"`
}

// Options tune a single evaluation.
type Options struct {
	// MaxPasses bounds each rule engine run. Zero means engine.DefaultMaxPasses.
	MaxPasses int
	// Pipeline replaces sections.Default when set.
	Pipeline *sections.Pipeline
}

// Result is the resolved configuration.
type Result struct {
	ResolvedSelections selection.Selection        `json:"resolvedSelections"`
	DisabledOptions    map[string]string          `json:"disabledOptions"`
	HiddenOptions      map[string]string          `json:"hiddenOptions"`
	Requirements       []engine.Requirement       `json:"requirements"`
	ValidationErrors   []string                   `json:"validationErrors"`
	Violations         []cardinality.Violation    `json:"violations,omitempty"`
	Recommendations    []engine.Recommendation    `json:"recommendations"`
	Warnings           []engine.Warning           `json:"warnings"`
	PriceOverrides     map[string]engine.Override `json:"priceOverrides,omitempty"`
	Pricing            pricing.Breakdown          `json:"pricing"`
	Passes             int                        `json:"passes"`
	Converged          bool                       `json:"converged"`
}

// Evaluate runs the full resolution for product against snap.
//
// Preconditions:
//   - snap is non-nil; product need not be one of snap's products
//
// Postconditions:
//   - ResolvedSelections holds exactly the groups eligible for product
//   - no key of DisabledOptions or HiddenOptions is selected
//   - section gates in DisabledOptions follow the selection of the final
//     rule pass, not an earlier pipeline pass
//   - every requirement is mirrored into ValidationErrors, followed by the
//     cardinality violations
//   - Pricing is computed from ResolvedSelections
//
// Malformed input never fails: unknown groups, unknown keys and non-string
// leaves are dropped along the way.
func Evaluate(snap *catalog.Snapshot, product catalog.Product, req Request, opts Options) Result {
	groups := applicability.Groups(snap.Groups(), product)
	idx := catalog.NewIndex(groups, applicability.Filter(snap.Options(), product))
	ruleset := engine.Applicable(snap.Rules(), product, idx)

	pipe := opts.Pipeline
	if pipe == nil {
		pipe = sections.Default()
	}

	sel := selection.FromRaw(req.Selections, idx.Groups(), idx.OptionToGroup())
	gate := func(s selection.Selection) map[string]string {
		return pipe.Disabled(sections.Input{Product: product, Index: idx, Selection: s})
	}

	first := pipe.Run(sections.Input{Product: product, Index: idx, Selection: sel})
	resolved := engine.Run(engine.Input{
		Product:   product,
		Index:     idx,
		Rules:     ruleset,
		Selection: first.Selection,
		Touched:   req.Touched,
		Answers:   req.Answers,
		Gate:      gate,
		MaxPasses: opts.MaxPasses,
	})

	second := pipe.Run(sections.Input{Product: product, Index: idx, Selection: resolved.Selection})
	final := engine.Run(engine.Input{
		Product:   product,
		Index:     idx,
		Rules:     ruleset,
		Selection: second.Selection,
		Touched:   req.Touched,
		Answers:   req.Answers,
		Gate:      gate,
		MaxPasses: opts.MaxPasses,
	})

	enforced, violations := cardinality.Enforce(final.Selection, idx)

	overrides := make(map[string]decimal.Decimal, len(final.Overrides))
	for k, o := range final.Overrides {
		overrides[k] = o.Price
	}

	res := Result{
		ResolvedSelections: enforced,
		DisabledOptions:    final.Disabled,
		HiddenOptions:      final.Hidden,
		Requirements:       nonNil(final.Requirements),
		Violations:         violations,
		Recommendations:    nonNil(final.Recommendations),
		Warnings:           nonNil(final.Warnings),
		PriceOverrides:     final.Overrides,
		Pricing:            pricing.Calculate(product, enforced, idx, overrides),
		Passes:             final.Passes,
		Converged:          final.Converged,
	}

	res.ValidationErrors = make([]string, 0, len(res.Requirements)+len(violations))
	for _, r := range res.Requirements {
		res.ValidationErrors = append(res.ValidationErrors, fmt.Sprintf("missing requirement %s: %s", r.Key, r.Message))
	}
	for _, v := range violations {
		res.ValidationErrors = append(res.ValidationErrors, v.Message)
	}
	return res
}

// Valid reports whether the result has no requirements or validation errors.
func (r Result) Valid() bool {
	return len(r.ValidationErrors) == 0
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
