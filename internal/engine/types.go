package engine

import (
	"github.com/TimurManjosov/goconfigurator/internal/answers"
	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/rules"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
	"github.com/shopspring/decimal"
)

// DefaultMaxPasses bounds the fixed-point loop when Input.MaxPasses is unset.
const DefaultMaxPasses = 10

// Requirement is an option a rule requires that is not selected.
type Requirement struct {
	Key     string `json:"key"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

// Recommendation suggests an option without selecting it.
type Recommendation struct {
	Key      string `json:"key"`
	Reason   string `json:"reason,omitempty"`
	Strength string `json:"strength,omitempty"`
	Rule     string `json:"rule,omitempty"`
}

// Warning is an informational message, optionally tied to an option.
type Warning struct {
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
	Rule    string `json:"rule,omitempty"`
}

// Override replaces an option's catalog price for one evaluation.
type Override struct {
	Key    string          `json:"key"`
	Price  decimal.Decimal `json:"price"`
	Reason string          `json:"reason,omitempty"`
	Rule   string          `json:"rule,omitempty"`
}

// Input is everything one engine run reads. Nothing in it is modified.
type Input struct {
	Product catalog.Product
	// Index covers the groups and options eligible for Product.
	Index *catalog.Index
	// Rules are the applicable rules in evaluation order (see Applicable).
	Rules     []*rules.Compiled
	Selection selection.Selection
	// Touched holds option or group keys the buyer edited explicitly.
	// default_select never changes them.
	Touched []string
	Answers answers.Bag
	// Disabled seeds the disabled map of every pass.
	Disabled map[string]string
	// Gate, when set, is called with the selection at the start of each pass.
	// The options it returns are disabled for that pass only, so a section
	// gate lifts as soon as a rule satisfies it.
	Gate      func(selection.Selection) map[string]string
	MaxPasses int
}

// Output is the state after the last pass. Annotations describe that pass only.
type Output struct {
	Selection       selection.Selection
	Disabled        map[string]string
	Hidden          map[string]string
	Requirements    []Requirement
	Recommendations []Recommendation
	Warnings        []Warning
	Overrides       map[string]Override
	Passes          int
	Converged       bool
}
