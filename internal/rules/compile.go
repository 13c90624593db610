package rules

import (
	"fmt"
	"sort"

	"github.com/TimurManjosov/goconfigurator/internal/answers"
)

// PreparedCondition is a normalized condition with its CEL program (answer_expression only).
type PreparedCondition struct {
	Condition
	Program *answers.Program
}

// Compiled is a validated, normalized rule ready for evaluation.
type Compiled struct {
	Rule
	// Order is the declaration index, used to break priority ties.
	Order      int
	Conditions []PreparedCondition
}

// Set is an immutable, priority-ordered collection of compiled active rules.
type Set struct {
	rules []*Compiled
	total int
}

// Compile validates every rule, rejects duplicate keys and compiles expression
// conditions. Inactive rules are validated but left out of the set.
// The returned set is ordered by descending priority, then declaration order.
func Compile(rs []Rule) (*Set, error) {
	seen := make(map[string]struct{}, len(rs))
	set := &Set{rules: make([]*Compiled, 0, len(rs)), total: len(rs)}

	for i, r := range rs {
		if err := ValidateRule(r); err != nil {
			return nil, err
		}
		if _, dup := seen[r.Key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRule, r.Key)
		}
		seen[r.Key] = struct{}{}

		if !r.Active {
			continue
		}
		c, err := compileRule(i, r)
		if err != nil {
			return nil, err
		}
		set.rules = append(set.rules, c)
	}

	sort.SliceStable(set.rules, func(i, j int) bool {
		return set.rules[i].Priority > set.rules[j].Priority
	})
	return set, nil
}

func compileRule(order int, r Rule) (*Compiled, error) {
	c := &Compiled{Rule: r, Order: order}
	c.Rule.Then = make([]Effect, len(r.Then))
	for i, e := range r.Then {
		e.Kind = NormalizeEffectKind(e.Kind)
		c.Rule.Then[i] = e
	}

	c.Conditions = make([]PreparedCondition, 0, len(r.When))
	for i, cond := range r.When {
		cond.Kind = NormalizeConditionKind(cond.Kind)
		pc := PreparedCondition{Condition: cond}
		if cond.Kind == CondAnswerExpression {
			prog, err := answers.Compile(cond.Expression)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w: condition[%d]: %w", r.Key, ErrInvalidCondition, i, err)
			}
			pc.Program = prog
		}
		c.Conditions = append(c.Conditions, pc)
	}
	return c, nil
}

// Rules returns the active rules in evaluation order. Callers must not modify the slice.
func (s *Set) Rules() []*Compiled {
	if s == nil {
		return nil
	}
	return s.rules
}

// Len returns the number of active rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Total returns the number of rules compiled, including inactive ones.
func (s *Set) Total() int {
	if s == nil {
		return 0
	}
	return s.total
}

// Applicable returns the active rules whose scope matches target, in evaluation order.
func (s *Set) Applicable(target ScopeTarget) []*Compiled {
	if s == nil {
		return nil
	}
	out := make([]*Compiled, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Scope.Matches(target) {
			out = append(out, r)
		}
	}
	return out
}
