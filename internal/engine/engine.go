// Package engine resolves a selection against the catalog rules by applying
// rule effects pass after pass until the selection reaches a fixed point.
//
// Each pass evaluates the conditions of every applicable rule against the
// selection as it stood when the pass began, then applies the effects of the
// rules that fired in phase order: removals, hides, selections, requirements,
// annotations, price overrides. Within a phase, higher-priority rules go first.
package engine

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/rules"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
)

var phases = []rules.Phase{
	rules.PhaseRemove,
	rules.PhaseHide,
	rules.PhaseSelect,
	rules.PhaseRequire,
	rules.PhaseAnnotate,
	rules.PhasePrice,
}

// Applicable returns the rules of set whose scope matches product, given the
// groups eligible for it, in evaluation order.
func Applicable(set *rules.Set, product catalog.Product, idx *catalog.Index) []*rules.Compiled {
	groups := make(map[string]bool)
	for _, k := range idx.GroupKeys() {
		groups[k] = true
	}
	return set.Applicable(rules.ScopeTarget{
		ProductID:   product.ID,
		ProductSlug: product.Slug,
		ProductType: product.Type,
		Groups:      groups,
	})
}

// Run iterates passes until one leaves the selection unchanged or the pass
// limit is reached. Hitting the limit adds a warning and returns the last state.
//
// Preconditions:
//   - in.Index is non-nil and in.Selection only holds groups of in.Index
//
// Postconditions:
//   - in is not modified
//   - no key of Output.Disabled or Output.Hidden is selected in Output.Selection
//   - when Converged, running again on Output.Selection yields the same Output
func Run(in Input) Output {
	limit := in.MaxPasses
	if limit <= 0 {
		limit = DefaultMaxPasses
	}

	touched := make(map[string]bool, len(in.Touched))
	for _, k := range in.Touched {
		touched[k] = true
	}

	state := in.Selection.Clone()
	var out Output
	for pass := 1; pass <= limit; pass++ {
		next := runPass(in, touched, state)
		next.Passes = pass
		if next.Selection.Equal(state) {
			next.Converged = true
			return next
		}
		state = next.Selection
		out = next
	}

	out.Warnings = append(out.Warnings, Warning{
		Message: fmt.Sprintf("rules did not settle after %d passes; returning the last state", limit),
	})
	return out
}

// pass holds the mutable state of a single pass.
type pass struct {
	in      Input
	touched map[string]bool
	work    selection.Selection
	out     Output

	reqSeen  map[string]bool
	recSeen  map[string]bool
	warnSeen map[string]bool
}

func runPass(in Input, touched map[string]bool, state selection.Selection) Output {
	v := newView(state.Clone(), in.Index, in.Product, in.Answers)

	fired := make([]*rules.Compiled, 0, len(in.Rules))
	for _, r := range in.Rules {
		if v.matchesAll(r.Conditions) {
			fired = append(fired, r)
		}
	}

	p := &pass{
		in:       in,
		touched:  touched,
		work:     state.Clone(),
		reqSeen:  make(map[string]bool),
		recSeen:  make(map[string]bool),
		warnSeen: make(map[string]bool),
		out: Output{
			Disabled:  make(map[string]string, len(in.Disabled)),
			Hidden:    make(map[string]string),
			Overrides: make(map[string]Override),
		},
	}
	for k, reason := range in.Disabled {
		p.out.Disabled[k] = reason
		p.removeKey(k)
	}
	if in.Gate != nil {
		for k, reason := range in.Gate(state.Clone()) {
			if !in.Index.Has(k) {
				continue
			}
			p.disable(k, reason)
		}
	}

	for _, phase := range phases {
		if phase == rules.PhaseSelect {
			p.applySelections(fired)
			continue
		}
		for _, r := range fired {
			for _, e := range r.Then {
				if e.Kind.Phase() == phase {
					p.apply(r, e)
				}
			}
		}
	}

	p.out.Selection = p.work
	return p.out
}

func (p *pass) apply(r *rules.Compiled, e rules.Effect) {
	idx := p.in.Index
	switch e.Kind {
	case rules.EffectForbid:
		if idx.Has(e.Key) {
			p.disable(e.Key, reasonOr(e.Reason, "Not available with the current configuration"))
		}
	case rules.EffectDisableByPrefix:
		for _, g := range idx.GroupKeys() {
			for _, o := range idx.GroupOptions(g) {
				if strings.HasPrefix(o.Key, e.Prefix) {
					p.disable(o.Key, reasonOr(e.Reason, "Not available with the current configuration"))
				}
			}
		}
	case rules.EffectRemove:
		p.removeKey(e.Key)
	case rules.EffectHide:
		if idx.Has(e.Key) {
			if _, ok := p.out.Hidden[e.Key]; !ok {
				p.out.Hidden[e.Key] = reasonOr(e.Reason, "Not offered for this configuration")
			}
			p.removeKey(e.Key)
		}
	case rules.EffectRequire:
		if !idx.Has(e.Key) || p.isSelected(e.Key) || p.reqSeen[e.Key] {
			return
		}
		p.reqSeen[e.Key] = true
		p.out.Requirements = append(p.out.Requirements, Requirement{
			Key:     e.Key,
			Message: requirementMessage(e, idx),
			Rule:    r.Key,
		})
	case rules.EffectRecommend:
		if !idx.Has(e.Key) || p.isSelected(e.Key) || p.recSeen[e.Key] || p.blocked(e.Key) {
			return
		}
		p.recSeen[e.Key] = true
		p.out.Recommendations = append(p.out.Recommendations, Recommendation{
			Key:      e.Key,
			Reason:   e.Reason,
			Strength: e.Strength,
			Rule:     r.Key,
		})
	case rules.EffectWarning:
		if e.Key != "" && !idx.Has(e.Key) {
			return
		}
		id := e.Key + "\x00" + e.Message
		if p.warnSeen[id] {
			return
		}
		p.warnSeen[id] = true
		p.out.Warnings = append(p.out.Warnings, Warning{Message: e.Message, Key: e.Key, Rule: r.Key})
	case rules.EffectPriceOverride:
		if !idx.Has(e.Key) || e.Price == nil {
			return
		}
		if _, ok := p.out.Overrides[e.Key]; ok {
			return
		}
		p.out.Overrides[e.Key] = Override{Key: e.Key, Price: *e.Price, Reason: e.Reason, Rule: r.Key}
	}
}

func (p *pass) disable(key, reason string) {
	if _, ok := p.out.Disabled[key]; !ok {
		p.out.Disabled[key] = reason
	}
	p.removeKey(key)
}

// candidate is a pending default_select or select effect.
type candidate struct {
	group    string
	key      string
	priority int
}

// applySelections runs the select phase. Candidates compete per group by
// descending effect priority, ties keeping rule order. A SINGLE or BOOLEAN
// group takes only its winning candidate; a MULTI group takes all of them.
func (p *pass) applySelections(fired []*rules.Compiled) {
	idx := p.in.Index
	var cands []candidate
	for _, r := range fired {
		for _, e := range r.Then {
			if e.Kind != rules.EffectDefaultSelect && e.Kind != rules.EffectSelect {
				continue
			}
			group, ok := idx.GroupOf(e.Key)
			if !ok || p.blocked(e.Key) {
				continue
			}
			if e.Kind == rules.EffectDefaultSelect && (p.touched[e.Key] || p.touched[group]) {
				continue
			}
			cands = append(cands, candidate{group: group, key: e.Key, priority: e.Priority})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].priority > cands[j].priority
	})

	decided := make(map[string]bool)
	for _, c := range cands {
		g, _ := idx.Group(c.group)
		if g.Kind != catalog.KindMulti {
			if decided[c.group] {
				continue
			}
			decided[c.group] = true
		}
		if p.isSelected(c.key) {
			continue
		}
		switch g.Kind {
		case catalog.KindSingle:
			p.work[c.group] = []string{c.key}
		case catalog.KindBoolean:
			p.work[c.group] = []string{selection.BooleanSentinel}
		default:
			p.work[c.group] = append(p.work[c.group], c.key)
		}
	}
}

func (p *pass) blocked(key string) bool {
	if _, ok := p.out.Disabled[key]; ok {
		return true
	}
	_, ok := p.out.Hidden[key]
	return ok
}

// isSelected reports whether key is selected in the working selection,
// resolving BOOLEAN sentinels to their boolean option.
func (p *pass) isSelected(key string) bool {
	idx := p.in.Index
	group, ok := idx.GroupOf(key)
	if !ok {
		return false
	}
	if g, _ := idx.Group(group); g.Kind == catalog.KindBoolean {
		o, _ := idx.BooleanOption(group)
		return o.Key == key && slices.Contains(p.work[group], selection.BooleanSentinel)
	}
	return slices.Contains(p.work[group], key)
}

// removeKey drops key from its group. Removing a BOOLEAN group's boolean
// option clears the sentinel.
func (p *pass) removeKey(key string) {
	idx := p.in.Index
	group, ok := idx.GroupOf(key)
	if !ok {
		return
	}
	if g, _ := idx.Group(group); g.Kind == catalog.KindBoolean {
		if o, _ := idx.BooleanOption(group); o.Key == key {
			p.work.Remove(group, selection.BooleanSentinel)
		}
		return
	}
	p.work.Remove(group, key)
}

func requirementMessage(e rules.Effect, idx *catalog.Index) string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Message != "" {
		return e.Message
	}
	name := e.Key
	if o, ok := idx.Option(e.Key); ok && o.Name != "" {
		name = o.Name
	}
	return name + " is required"
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}
