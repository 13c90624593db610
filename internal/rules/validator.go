package rules

import (
	"errors"
	"fmt"

	"github.com/TimurManjosov/goconfigurator/internal/answers"
)

// Sentinel errors returned by ValidateRule and Compile.
var (
	ErrInvalidRule          = errors.New("invalid rule")
	ErrInvalidScope         = errors.New("invalid scope")
	ErrInvalidCondition     = errors.New("invalid condition")
	ErrUnknownConditionKind = errors.New("unknown condition kind")
	ErrInvalidEffect        = errors.New("invalid effect")
	ErrUnknownEffectKind    = errors.New("unknown effect kind")
	ErrDuplicateRule        = errors.New("duplicate rule key")
)

var validScopes = map[ScopeKind]struct{}{
	"":               {},
	ScopeGlobal:      {},
	ScopeProductType: {},
	ScopeProduct:     {},
	ScopeOptionGroup: {},
}

var validConditionKinds = map[ConditionKind]struct{}{
	CondOptionSelected:       {},
	CondOptionNotSelected:    {},
	CondOptionTagSelected:    {},
	CondOptionTagSelectedAny: {},
	CondGroupEmpty:           {},
	CondGroupNotEmpty:        {},
	CondAnswer:               {},
	CondAnswerSet:            {},
	CondAnswerExpression:     {},
	CondAnswerLogic:          {},
}

// ValidateRule performs strict validation of a Rule. Unknown condition or effect
// kinds are rejected rather than treated as no-ops.
// It is a pure function: it never mutates r.
func ValidateRule(r Rule) error {
	if r.Key == "" {
		return fmt.Errorf("%w: rule key must not be empty", ErrInvalidRule)
	}

	if err := validateScope(r.Scope); err != nil {
		return fmt.Errorf("rule %q: %w", r.Key, err)
	}

	for i, c := range r.When {
		if err := validateCondition(i, c); err != nil {
			return fmt.Errorf("rule %q: %w", r.Key, err)
		}
	}

	if len(r.Then) == 0 {
		return fmt.Errorf("%w: rule %q must have at least one effect", ErrInvalidEffect, r.Key)
	}
	for i, e := range r.Then {
		if err := validateEffect(i, e); err != nil {
			return fmt.Errorf("rule %q: %w", r.Key, err)
		}
	}
	return nil
}

func validateScope(s Scope) error {
	if _, ok := validScopes[s.Kind]; !ok {
		return fmt.Errorf("%w: kind %q is not supported", ErrInvalidScope, s.Kind)
	}
	if s.Kind != "" && s.Kind != ScopeGlobal && s.Value == "" {
		return fmt.Errorf("%w: kind %q requires a value", ErrInvalidScope, s.Kind)
	}
	return nil
}

func validateCondition(i int, c Condition) error {
	kind := NormalizeConditionKind(c.Kind)
	if _, ok := validConditionKinds[kind]; !ok {
		return fmt.Errorf("%w: condition[%d] kind %q", ErrUnknownConditionKind, i, c.Kind)
	}

	switch kind {
	case CondOptionSelected, CondOptionNotSelected:
		if c.Key == "" {
			return fmt.Errorf("%w: condition[%d] %s requires key", ErrInvalidCondition, i, kind)
		}
	case CondOptionTagSelected:
		if c.Tag == "" {
			return fmt.Errorf("%w: condition[%d] %s requires tag", ErrInvalidCondition, i, kind)
		}
	case CondOptionTagSelectedAny:
		if len(c.Tags) == 0 {
			return fmt.Errorf("%w: condition[%d] %s requires tags", ErrInvalidCondition, i, kind)
		}
	case CondGroupEmpty, CondGroupNotEmpty:
		if c.Group == "" {
			return fmt.Errorf("%w: condition[%d] %s requires group", ErrInvalidCondition, i, kind)
		}
	case CondAnswer:
		if c.Answer == "" {
			return fmt.Errorf("%w: condition[%d] answer requires answer name", ErrInvalidCondition, i)
		}
		if !answers.SupportedOperator(c.Operator) {
			return fmt.Errorf("%w: condition[%d] operator %q is not supported", ErrInvalidCondition, i, c.Operator)
		}
		if c.Value == nil {
			return fmt.Errorf("%w: condition[%d] answer requires a value", ErrInvalidCondition, i)
		}
	case CondAnswerSet:
		if c.Answer == "" {
			return fmt.Errorf("%w: condition[%d] answer_set requires answer name", ErrInvalidCondition, i)
		}
	case CondAnswerExpression:
		if _, err := answers.Compile(c.Expression); err != nil {
			return fmt.Errorf("%w: condition[%d]: %w", ErrInvalidCondition, i, err)
		}
	case CondAnswerLogic:
		if err := answers.ValidateLogic(c.Expression); err != nil {
			return fmt.Errorf("%w: condition[%d]: %w", ErrInvalidCondition, i, err)
		}
	}
	return nil
}

func validateEffect(i int, e Effect) error {
	kind := NormalizeEffectKind(e.Kind)
	if kind.Phase() == 0 {
		return fmt.Errorf("%w: effect[%d] kind %q", ErrUnknownEffectKind, i, e.Kind)
	}

	switch kind {
	case EffectDisableByPrefix:
		if e.Prefix == "" {
			return fmt.Errorf("%w: effect[%d] %s requires prefix", ErrInvalidEffect, i, kind)
		}
	case EffectWarning:
		if e.Message == "" {
			return fmt.Errorf("%w: effect[%d] warning requires message", ErrInvalidEffect, i)
		}
	case EffectPriceOverride:
		if e.Key == "" {
			return fmt.Errorf("%w: effect[%d] price_override requires key", ErrInvalidEffect, i)
		}
		if e.Price == nil {
			return fmt.Errorf("%w: effect[%d] price_override requires price", ErrInvalidEffect, i)
		}
	default:
		if e.Key == "" {
			return fmt.Errorf("%w: effect[%d] %s requires key", ErrInvalidEffect, i, kind)
		}
	}
	return nil
}
