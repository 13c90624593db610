// Package pricing turns a resolved selection into a tax-aware price breakdown.
// All amounts are decimals rounded half-up to two places where they are produced.
package pricing

import (
	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places every amount is rounded to.
const Places = 2

// LineType distinguishes the product line from option lines.
type LineType string

const (
	LineBase   LineType = "base"
	LineOption LineType = "option"
)

// Line is one row of the breakdown.
type Line struct {
	Type      LineType        `json:"type"`
	Key       string          `json:"key"`
	Name      string          `json:"name"`
	PriceExcl decimal.Decimal `json:"priceExcl"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	PriceIncl decimal.Decimal `json:"priceIncl"`
	Included  bool            `json:"included,omitempty"`
	Quantity  int             `json:"quantity,omitempty"`
}

// Breakdown is the priced result. VATTotal is always TotalIncl - TotalExcl.
type Breakdown struct {
	TotalExcl decimal.Decimal `json:"totalExcl"`
	TotalIncl decimal.Decimal `json:"totalIncl"`
	VATTotal  decimal.Decimal `json:"vatTotal"`
	Lines     []Line          `json:"lines"`
}

// Calculate prices product plus every distinct option key in sel.
//
// Lines follow idx group order, then selection order within a group. A BOOLEAN
// group's sentinel is priced as the group's boolean option. The unit price is
// overrides[key] when present, otherwise the catalog price; the tax rate is the
// option's own, otherwise the product's. Options with a quantity rule are
// priced per repeat and report their quantity. A line whose override is
// exactly zero is marked Included.
func Calculate(product catalog.Product, sel selection.Selection, idx *catalog.Index, overrides map[string]decimal.Decimal) Breakdown {
	b := Breakdown{Lines: []Line{baseLine(product)}}

	for _, g := range idx.Groups() {
		for _, key := range selection.Distinct(sel[g.Key]) {
			opt, ok := resolve(g, key, idx)
			if !ok {
				continue
			}
			qty := 1
			if opt.Quantity != nil {
				qty = sel.Occurrences(g.Key, key)
			}
			b.Lines = append(b.Lines, optionLine(product, opt, qty, overrides))
		}
	}

	b.TotalExcl, b.TotalIncl = decimal.Zero, decimal.Zero
	for _, l := range b.Lines {
		b.TotalExcl = b.TotalExcl.Add(l.PriceExcl)
		b.TotalIncl = b.TotalIncl.Add(l.PriceIncl)
	}
	b.VATTotal = b.TotalIncl.Sub(b.TotalExcl)
	return b
}

func resolve(g catalog.OptionGroup, key string, idx *catalog.Index) (catalog.Option, bool) {
	if g.Kind == catalog.KindBoolean && key == selection.BooleanSentinel {
		return idx.BooleanOption(g.Key)
	}
	owner, ok := idx.GroupOf(key)
	if !ok || owner != g.Key {
		return catalog.Option{}, false
	}
	return idx.Option(key)
}

func baseLine(p catalog.Product) Line {
	excl := Round(p.BasePrice)
	return Line{
		Type:      LineBase,
		Key:       p.ID,
		Name:      p.Name,
		PriceExcl: excl,
		TaxRate:   p.TaxRate,
		PriceIncl: Gross(excl, p.TaxRate),
	}
}

func optionLine(p catalog.Product, o catalog.Option, qty int, overrides map[string]decimal.Decimal) Line {
	unit := o.Price
	override, overridden := overrides[o.Key]
	if overridden {
		unit = override
	}
	rate := p.TaxRate
	if o.TaxRate != nil {
		rate = *o.TaxRate
	}

	excl := Round(unit.Mul(decimal.NewFromInt(int64(qty))))
	l := Line{
		Type:      LineOption,
		Key:       o.Key,
		Name:      o.Name,
		PriceExcl: excl,
		TaxRate:   rate,
		PriceIncl: Gross(excl, rate),
		Included:  overridden && override.IsZero(),
	}
	if o.Quantity != nil {
		l.Quantity = qty
	}
	return l
}

// Round rounds d half-up to Places decimals.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Gross returns excl * (1 + rate), rounded.
func Gross(excl, rate decimal.Decimal) decimal.Decimal {
	return Round(excl.Mul(decimal.NewFromInt(1).Add(rate)))
}
