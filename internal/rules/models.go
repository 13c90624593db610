package rules

import (
	"strings"

	"github.com/TimurManjosov/goconfigurator/internal/answers"
	"github.com/shopspring/decimal"
)

// ScopeKind selects which products a rule applies to.
type ScopeKind string

const (
	ScopeGlobal      ScopeKind = "global"
	ScopeProductType ScopeKind = "product_type"
	ScopeProduct     ScopeKind = "product"
	ScopeOptionGroup ScopeKind = "option_group"
)

// Scope restricts a rule. Value holds the product type, product id/slug or group key.
type Scope struct {
	Kind  ScopeKind `json:"kind" yaml:"kind"`
	Value string    `json:"value,omitempty" yaml:"value,omitempty"`
}

// ScopeTarget describes the product an evaluation runs for.
type ScopeTarget struct {
	ProductID   string
	ProductSlug string
	ProductType string
	// Groups holds the keys of option groups eligible for the product.
	Groups map[string]bool
}

// Matches reports whether a rule with this scope applies to target.
// An empty kind is treated as global.
func (s Scope) Matches(target ScopeTarget) bool {
	switch s.Kind {
	case "", ScopeGlobal:
		return true
	case ScopeProductType:
		return s.Value == target.ProductType
	case ScopeProduct:
		return s.Value != "" && (s.Value == target.ProductID || s.Value == target.ProductSlug)
	case ScopeOptionGroup:
		return target.Groups[s.Value]
	default:
		return false
	}
}

// ConditionKind discriminates the Condition variant.
type ConditionKind string

const (
	CondOptionSelected       ConditionKind = "option_selected"
	CondOptionNotSelected    ConditionKind = "option_not_selected"
	CondOptionTagSelected    ConditionKind = "option_tag_selected"
	CondOptionTagSelectedAny ConditionKind = "option_tag_selected_any"
	CondGroupEmpty           ConditionKind = "group_empty"
	CondGroupNotEmpty        ConditionKind = "group_not_empty"
	CondAnswer               ConditionKind = "answer"
	CondAnswerSet            ConditionKind = "answer_set"
	CondAnswerExpression     ConditionKind = "answer_expression"
	CondAnswerLogic          ConditionKind = "answer_logic"
)

// Condition is a single "when" predicate. Which fields are read depends on Kind:
//
//	option_selected, option_not_selected   Key
//	option_tag_selected                    Tag
//	option_tag_selected_any                Tags
//	group_empty, group_not_empty           Group
//	answer                                 Answer, Operator, Value
//	answer_set                             Answer
//	answer_expression                      Expression (CEL)
//	answer_logic                           Expression (JSON Logic)
//
// Conditions within one rule are AND-ed.
type Condition struct {
	Kind       ConditionKind    `json:"kind" yaml:"kind"`
	Key        string           `json:"key,omitempty" yaml:"key,omitempty"`
	Tag        string           `json:"tag,omitempty" yaml:"tag,omitempty"`
	Tags       []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Group      string           `json:"group,omitempty" yaml:"group,omitempty"`
	Answer     string           `json:"answer,omitempty" yaml:"answer,omitempty"`
	Operator   answers.Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value      any              `json:"value,omitempty" yaml:"value,omitempty"`
	Expression string           `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// EffectKind discriminates the Effect variant.
type EffectKind string

const (
	EffectForbid          EffectKind = "forbid"
	EffectDisableByPrefix EffectKind = "disable_by_prefix"
	EffectRemove          EffectKind = "remove"
	EffectHide            EffectKind = "hide"
	EffectDefaultSelect   EffectKind = "default_select"
	EffectSelect          EffectKind = "select"
	EffectRequire         EffectKind = "require"
	EffectRecommend       EffectKind = "recommend"
	EffectWarning         EffectKind = "warning"
	EffectPriceOverride   EffectKind = "price_override"
)

// Phase is the position of an effect kind in the per-pass application order.
// Removals settle before additions are considered.
type Phase int

const (
	PhaseRemove Phase = iota + 1
	PhaseHide
	PhaseSelect
	PhaseRequire
	PhaseAnnotate
	PhasePrice
)

var effectPhases = map[EffectKind]Phase{
	EffectForbid:          PhaseRemove,
	EffectDisableByPrefix: PhaseRemove,
	EffectRemove:          PhaseRemove,
	EffectHide:            PhaseHide,
	EffectDefaultSelect:   PhaseSelect,
	EffectSelect:          PhaseSelect,
	EffectRequire:         PhaseRequire,
	EffectRecommend:       PhaseAnnotate,
	EffectWarning:         PhaseAnnotate,
	EffectPriceOverride:   PhasePrice,
}

// Phase returns the application phase of k, or 0 for unknown kinds.
func (k EffectKind) Phase() Phase {
	return effectPhases[k]
}

// Effect is a single "then" action.
type Effect struct {
	Kind     EffectKind       `json:"kind" yaml:"kind"`
	Key      string           `json:"key,omitempty" yaml:"key,omitempty"`
	Prefix   string           `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Reason   string           `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message  string           `json:"message,omitempty" yaml:"message,omitempty"`
	Priority int              `json:"priority,omitempty" yaml:"priority,omitempty"`
	Strength string           `json:"strength,omitempty" yaml:"strength,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty" yaml:"price,omitempty"`
}

// Rule is a declarative condition -> effect record.
// Higher Priority rules are evaluated and applied first.
type Rule struct {
	Key      string      `json:"key" yaml:"key"`
	Name     string      `json:"name,omitempty" yaml:"name,omitempty"`
	Scope    Scope       `json:"scope" yaml:"scope"`
	Priority int         `json:"priority" yaml:"priority"`
	When     []Condition `json:"when,omitempty" yaml:"when,omitempty"`
	Then     []Effect    `json:"then" yaml:"then"`
	Active   bool        `json:"active" yaml:"active"`
}

// NormalizeConditionKind accepts "OPTION-SELECTED" style spellings.
func NormalizeConditionKind(k ConditionKind) ConditionKind {
	return ConditionKind(normalizeKind(string(k)))
}

// NormalizeEffectKind accepts "DEFAULT-SELECT" style spellings.
func NormalizeEffectKind(k EffectKind) EffectKind {
	return EffectKind(normalizeKind(string(k)))
}

func normalizeKind(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
