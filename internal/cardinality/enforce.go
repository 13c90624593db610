// Package cardinality clamps a resolved selection to the group, sub-section
// and quantity bounds declared in the catalog.
package cardinality

import (
	"fmt"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
)

// Violation kinds.
const (
	KindMax         = "max"
	KindMin         = "min"
	KindQuantityMin = "quantity_min"
	KindQuantityMax = "quantity_max"
	KindStep        = "quantity_step"
)

// Violation describes one bound that the selection broke.
type Violation struct {
	Group      string `json:"group"`
	SubSection string `json:"subSection,omitempty"`
	Key        string `json:"key,omitempty"`
	Kind       string `json:"kind"`
	Limit      int    `json:"limit"`
	Message    string `json:"message"`
}

func (v Violation) Error() string { return v.Message }

// Enforce returns a copy of sel that satisfies every maximum, plus the
// violations found. Groups are visited in idx order.
//
//   - SINGLE groups with more than one key keep the first, without a violation.
//   - A group or sub-section over its max keeps its first max distinct keys and
//     reports the limit.
//   - A group or sub-section under its min is reported and left as is.
//   - Options with a quantity rule are checked for min, max and step; repeats
//     over the max are dropped.
//
// Counts are of distinct option keys. Groups not in idx are dropped.
func Enforce(sel selection.Selection, idx *catalog.Index) (selection.Selection, []Violation) {
	out := make(selection.Selection, len(sel))
	var violations []Violation

	for _, g := range idx.Groups() {
		keys := append([]string{}, sel[g.Key]...)

		if g.Kind == catalog.KindSingle && len(keys) > 1 {
			keys = keys[:1]
		}

		keys, vs := enforceSubSections(g, keys, idx)
		violations = append(violations, vs...)

		n := len(selection.Distinct(keys))
		if g.Max != nil && n > *g.Max {
			keys = keepDistinct(keys, *g.Max, nil)
			violations = append(violations, Violation{
				Group:   g.Key,
				Kind:    KindMax,
				Limit:   *g.Max,
				Message: fmt.Sprintf("%s allows at most %d option(s), %d were selected", label(g), *g.Max, n),
			})
		}
		if g.Min != nil && n < *g.Min {
			violations = append(violations, Violation{
				Group:   g.Key,
				Kind:    KindMin,
				Limit:   *g.Min,
				Message: fmt.Sprintf("%s requires at least %d option(s), %d selected", label(g), *g.Min, n),
			})
		}

		keys, vs = enforceQuantities(g, keys, idx)
		violations = append(violations, vs...)

		out[g.Key] = keys
	}
	return out, violations
}

func enforceSubSections(g catalog.OptionGroup, keys []string, idx *catalog.Index) ([]string, []Violation) {
	var violations []Violation
	for _, sub := range g.SubSections {
		inSub := func(k string) bool {
			o, ok := idx.Option(k)
			return ok && o.SubKey == sub.Key
		}
		n := 0
		for _, k := range selection.Distinct(keys) {
			if inSub(k) {
				n++
			}
		}
		if sub.Max != nil && n > *sub.Max {
			keys = keepDistinct(keys, *sub.Max, inSub)
			violations = append(violations, Violation{
				Group:      g.Key,
				SubSection: sub.Key,
				Kind:       KindMax,
				Limit:      *sub.Max,
				Message:    fmt.Sprintf("%s / %s allows at most %d option(s), %d were selected", label(g), subLabel(sub), *sub.Max, n),
			})
		}
		if sub.Min != nil && n < *sub.Min {
			violations = append(violations, Violation{
				Group:      g.Key,
				SubSection: sub.Key,
				Kind:       KindMin,
				Limit:      *sub.Min,
				Message:    fmt.Sprintf("%s / %s requires at least %d option(s), %d selected", label(g), subLabel(sub), *sub.Min, n),
			})
		}
	}
	return keys, violations
}

func enforceQuantities(g catalog.OptionGroup, keys []string, idx *catalog.Index) ([]string, []Violation) {
	var violations []Violation
	for _, k := range selection.Distinct(keys) {
		o, ok := idx.Option(k)
		if !ok || o.Quantity == nil {
			continue
		}
		q := o.Quantity
		n := 0
		for _, x := range keys {
			if x == k {
				n++
			}
		}

		if limit := o.MaxRepeats(); limit > 0 && n > limit {
			keys = dropRepeats(keys, k, limit)
			violations = append(violations, Violation{
				Group: g.Key, Key: k, Kind: KindQuantityMax, Limit: limit,
				Message: fmt.Sprintf("%s: quantity %d exceeds the maximum of %d", optionLabel(o), n, limit),
			})
			n = limit
		}
		if n < q.Min {
			violations = append(violations, Violation{
				Group: g.Key, Key: k, Kind: KindQuantityMin, Limit: q.Min,
				Message: fmt.Sprintf("%s: quantity %d is below the minimum of %d", optionLabel(o), n, q.Min),
			})
		}
		if step := q.Step; step > 1 && (n-q.Min)%step != 0 {
			violations = append(violations, Violation{
				Group: g.Key, Key: k, Kind: KindStep, Limit: step,
				Message: fmt.Sprintf("%s: quantity %d must be %d plus a multiple of %d", optionLabel(o), n, q.Min, step),
			})
		}
	}
	return keys, violations
}

// keepDistinct keeps the first limit distinct keys matching pred (all keys when
// pred is nil), with their repeats. Keys not matching pred are kept.
func keepDistinct(keys []string, limit int, pred func(string) bool) []string {
	allowed := make(map[string]bool)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if pred != nil && !pred(k) {
			out = append(out, k)
			continue
		}
		if !allowed[k] {
			if len(allowed) >= limit {
				continue
			}
			allowed[k] = true
		}
		out = append(out, k)
	}
	return out
}

func dropRepeats(keys []string, key string, limit int) []string {
	out := make([]string, 0, len(keys))
	seen := 0
	for _, k := range keys {
		if k == key {
			if seen >= limit {
				continue
			}
			seen++
		}
		out = append(out, k)
	}
	return out
}

func label(g catalog.OptionGroup) string {
	if g.Name != "" {
		return fmt.Sprintf("%s (%s)", g.Name, g.Key)
	}
	return g.Key
}

func subLabel(s catalog.SubSection) string {
	if s.Name != "" {
		return s.Name
	}
	return s.Key
}

func optionLabel(o catalog.Option) string {
	if o.Name != "" {
		return o.Name
	}
	return o.Key
}
