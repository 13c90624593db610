// Package catalog holds the immutable product catalog a configuration is
// resolved against: products, option groups, options and rules, plus the
// indexes, loaders and the atomic holder that publishes new versions.
package catalog

import (
	"strings"

	"github.com/TimurManjosov/goconfigurator/internal/rules"
	"github.com/shopspring/decimal"
)

// ModelKeyAttribute is the product attribute carrying the canonical model key.
const ModelKeyAttribute = "model_key"

// Product is a configurable base product (hot tub, sauna, cold plunge).
type Product struct {
	ID         string          `json:"id" yaml:"id"`
	Slug       string          `json:"slug" yaml:"slug"`
	Type       string          `json:"type" yaml:"type"`
	Name       string          `json:"name" yaml:"name"`
	BasePrice  decimal.Decimal `json:"basePrice" yaml:"basePrice"`
	TaxRate    decimal.Decimal `json:"taxRate" yaml:"taxRate"`
	Attributes map[string]any  `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Active     bool            `json:"active" yaml:"active"`
}

// ModelKey returns the model_key attribute, or "" when unset or not a string.
func (p Product) ModelKey() string {
	if s, ok := p.Attributes[ModelKeyAttribute].(string); ok {
		return s
	}
	return ""
}

// SelectionKind is the cardinality class of an option group.
type SelectionKind string

const (
	KindSingle  SelectionKind = "SINGLE"
	KindMulti   SelectionKind = "MULTI"
	KindBoolean SelectionKind = "BOOLEAN"
)

// NormalizeKind upper-cases k so "single" and "SINGLE" are equivalent.
func NormalizeKind(k SelectionKind) SelectionKind {
	return SelectionKind(strings.ToUpper(strings.TrimSpace(string(k))))
}

// Valid reports whether k is one of the three known kinds.
func (k SelectionKind) Valid() bool {
	switch k {
	case KindSingle, KindMulti, KindBoolean:
		return true
	}
	return false
}

// SubSection is an ordered partition of a group with its own bounds.
type SubSection struct {
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Min  *int   `json:"min,omitempty" yaml:"min,omitempty"`
	Max  *int   `json:"max,omitempty" yaml:"max,omitempty"`
}

// OptionGroup is a bucket of options sharing one cardinality rule.
type OptionGroup struct {
	Key          string        `json:"key" yaml:"key"`
	Name         string        `json:"name" yaml:"name"`
	Kind         SelectionKind `json:"kind" yaml:"kind"`
	Min          *int          `json:"min,omitempty" yaml:"min,omitempty"`
	Max          *int          `json:"max,omitempty" yaml:"max,omitempty"`
	SubSections  []SubSection  `json:"subSections,omitempty" yaml:"subSections,omitempty"`
	ProductTypes []string      `json:"productTypes,omitempty" yaml:"productTypes,omitempty"`
	SortOrder    int           `json:"sortOrder" yaml:"sortOrder"`
}

// SubSection returns the sub-section with the given key.
func (g OptionGroup) SubSection(key string) (SubSection, bool) {
	for _, s := range g.SubSections {
		if s.Key == key {
			return s, true
		}
	}
	return SubSection{}, false
}

// QuantityRule bounds how often an option may repeat in a MULTI group.
// Max 0 means unbounded; Step 0 is treated as 1.
type QuantityRule struct {
	Min  int `json:"min" yaml:"min"`
	Max  int `json:"max,omitempty" yaml:"max,omitempty"`
	Step int `json:"step,omitempty" yaml:"step,omitempty"`
}

// Applicability restricts an option to product types and/or model keys.
// An empty list places no restriction.
type Applicability struct {
	ProductTypes []string `json:"productTypes,omitempty" yaml:"productTypes,omitempty"`
	ModelKeys    []string `json:"modelKeys,omitempty" yaml:"modelKeys,omitempty"`
}

// Option is a selectable choice within a group.
type Option struct {
	Key           string           `json:"key" yaml:"key"`
	GroupKey      string           `json:"group" yaml:"group"`
	SubKey        string           `json:"subSection,omitempty" yaml:"subSection,omitempty"`
	Name          string           `json:"name" yaml:"name"`
	Description   string           `json:"description,omitempty" yaml:"description,omitempty"`
	Price         decimal.Decimal  `json:"price" yaml:"price"`
	TaxRate       *decimal.Decimal `json:"taxRate,omitempty" yaml:"taxRate,omitempty"`
	Tags          []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Attributes    map[string]any   `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Applicability *Applicability   `json:"applicability,omitempty" yaml:"applicability,omitempty"`
	Quantity      *QuantityRule    `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Active        bool             `json:"active" yaml:"active"`
}

// HasTag reports whether the option carries tag (case-sensitive).
func (o Option) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MaxRepeats returns how many times the option may appear in a selection.
// Options without a quantity rule appear at most once; 0 means unbounded.
func (o Option) MaxRepeats() int {
	if o.Quantity == nil {
		return 1
	}
	return o.Quantity.Max
}

// Document is the serialized form of a catalog as read by a Source.
type Document struct {
	Version  string        `json:"version" yaml:"version"`
	Products []Product     `json:"products" yaml:"products"`
	Groups   []OptionGroup `json:"groups" yaml:"groups"`
	Options  []Option      `json:"options" yaml:"options"`
	Rules    []rules.Rule  `json:"rules,omitempty" yaml:"rules,omitempty"`
}
