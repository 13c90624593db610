package engine

import (
	"sort"

	"github.com/TimurManjosov/goconfigurator/internal/answers"
	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/rules"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
)

// view is the immutable state every condition of a pass is evaluated against.
type view struct {
	sel      selection.Selection
	selected map[string]bool
	keys     []string
	tags     []string
	tagSet   map[string]bool
	product  catalog.Product
	answers  answers.Bag

	logicData map[string]any
}

func newView(sel selection.Selection, idx *catalog.Index, product catalog.Product, bag answers.Bag) *view {
	v := &view{
		sel:      sel,
		selected: selectedOptions(sel, idx),
		tagSet:   make(map[string]bool),
		product:  product,
		answers:  bag,
	}
	for k := range v.selected {
		v.keys = append(v.keys, k)
		opt, _ := idx.Option(k)
		for _, t := range opt.Tags {
			if !v.tagSet[t] {
				v.tagSet[t] = true
				v.tags = append(v.tags, t)
			}
		}
	}
	sort.Strings(v.keys)
	sort.Strings(v.tags)
	return v
}

// selectedOptions resolves a selection to the set of selected option keys.
// A BOOLEAN group's sentinel resolves to the group's boolean option.
func selectedOptions(sel selection.Selection, idx *catalog.Index) map[string]bool {
	out := make(map[string]bool)
	for group, keys := range sel {
		g, ok := idx.Group(group)
		if !ok {
			continue
		}
		for _, k := range keys {
			if k == selection.BooleanSentinel && g.Kind == catalog.KindBoolean {
				if o, ok := idx.BooleanOption(group); ok {
					out[o.Key] = true
				}
				continue
			}
			if owner, ok := idx.GroupOf(k); ok && owner == group {
				out[k] = true
			}
		}
	}
	return out
}

// matchesAll reports whether every condition holds. No conditions means true.
func (v *view) matchesAll(conds []rules.PreparedCondition) bool {
	for _, c := range conds {
		if !v.matches(c) {
			return false
		}
	}
	return true
}

func (v *view) matches(c rules.PreparedCondition) bool {
	switch c.Kind {
	case rules.CondOptionSelected:
		return v.selected[c.Key]
	case rules.CondOptionNotSelected:
		return !v.selected[c.Key]
	case rules.CondOptionTagSelected:
		return v.tagSet[c.Tag]
	case rules.CondOptionTagSelectedAny:
		for _, t := range c.Tags {
			if v.tagSet[t] {
				return true
			}
		}
		return false
	case rules.CondGroupEmpty:
		return len(v.sel[c.Group]) == 0
	case rules.CondGroupNotEmpty:
		return len(v.sel[c.Group]) > 0
	case rules.CondAnswer:
		got, ok := v.answers.Lookup(c.Answer)
		return ok && answers.Check(c.Operator, got, c.Value)
	case rules.CondAnswerSet:
		return v.answers.Truthy(c.Answer)
	case rules.CondAnswerExpression:
		if c.Program == nil {
			return false
		}
		ok, err := c.Program.Eval(answers.Vars{
			Answers:     v.answers,
			Selected:    v.keys,
			Tags:        v.tags,
			ProductType: v.product.Type,
		})
		return err == nil && ok
	case rules.CondAnswerLogic:
		ok, err := answers.EvaluateLogic(c.Expression, v.logicInput())
		return err == nil && ok
	default:
		return false
	}
}

func (v *view) logicInput() map[string]any {
	if v.logicData == nil {
		bag := map[string]any(v.answers)
		if bag == nil {
			bag = map[string]any{}
		}
		v.logicData = map[string]any{
			"answers":      bag,
			"selected":     append([]string{}, v.keys...),
			"tags":         append([]string{}, v.tags...),
			"product_type": v.product.Type,
		}
	}
	return v.logicData
}
