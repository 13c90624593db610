package rules

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

func TestRuleYAMLDecoding(t *testing.T) {
	doc := `
key: electric-heater-pump
scope: {kind: product_type, value: hot_tub}
priority: 50
active: true
when:
  - kind: OPTION-TAG-SELECTED
    tag: ELECTRIC
then:
  - kind: select
    key: CIRCULATION-PUMP
  - kind: price_override
    key: CIRCULATION-PUMP
    price: 0
    reason: included with electric heaters
`
	var r Rule
	if err := yaml.Unmarshal([]byte(doc), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if r.Scope.Kind != ScopeProductType || r.Scope.Value != "hot_tub" {
		t.Errorf("scope: got %+v", r.Scope)
	}
	if len(r.When) != 1 || NormalizeConditionKind(r.When[0].Kind) != CondOptionTagSelected {
		t.Fatalf("when: got %+v", r.When)
	}
	if len(r.Then) != 2 {
		t.Fatalf("then length: got %d, want 2", len(r.Then))
	}
	if r.Then[1].Price == nil || !r.Then[1].Price.IsZero() {
		t.Errorf("price: got %v, want 0", r.Then[1].Price)
	}
	if err := ValidateRule(r); err != nil {
		t.Errorf("ValidateRule: %v", err)
	}
}

func TestEffectPriceJSON(t *testing.T) {
	var e Effect
	if err := json.Unmarshal([]byte(`{"kind":"price_override","key":"K","price":"12.50"}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Price == nil || !e.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("price: got %v, want 12.5", e.Price)
	}
}

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

func TestScopeMatches(t *testing.T) {
	target := ScopeTarget{
		ProductID:   "p-1",
		ProductSlug: "aurora-200",
		ProductType: "hot_tub",
		Groups:      map[string]bool{"HEATING_BASE": true},
	}

	tests := []struct {
		name  string
		scope Scope
		want  bool
	}{
		{name: "empty kind is global", scope: Scope{}, want: true},
		{name: "global", scope: Scope{Kind: ScopeGlobal}, want: true},
		{name: "product type match", scope: Scope{Kind: ScopeProductType, Value: "hot_tub"}, want: true},
		{name: "product type miss", scope: Scope{Kind: ScopeProductType, Value: "sauna"}, want: false},
		{name: "product by id", scope: Scope{Kind: ScopeProduct, Value: "p-1"}, want: true},
		{name: "product by slug", scope: Scope{Kind: ScopeProduct, Value: "aurora-200"}, want: true},
		{name: "product miss", scope: Scope{Kind: ScopeProduct, Value: "p-2"}, want: false},
		{name: "group eligible", scope: Scope{Kind: ScopeOptionGroup, Value: "HEATING_BASE"}, want: true},
		{name: "group not eligible", scope: Scope{Kind: ScopeOptionGroup, Value: "LID_BASE"}, want: false},
		{name: "unknown kind", scope: Scope{Kind: "tenant", Value: "x"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Matches(target); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Validation: success cases
// ---------------------------------------------------------------------------

func TestValidateRule_Success(t *testing.T) {
	zero := decimal.Zero

	tests := []struct {
		name string
		rule Rule
	}{
		{
			name: "require without conditions",
			rule: Rule{Key: "r1", Then: []Effect{{Kind: EffectRequire, Key: "SAND-FILTER-BOX"}}},
		},
		{
			name: "disable by prefix on selection",
			rule: Rule{
				Key:  "r2",
				When: []Condition{{Kind: CondOptionSelected, Key: "SAND-FILTER-BOX"}},
				Then: []Effect{{Kind: EffectDisableByPrefix, Prefix: "CUPHOLDER-", Reason: "blocked by filter box"}},
			},
		},
		{
			name: "uppercase kinds are accepted",
			rule: Rule{
				Key:  "r3",
				When: []Condition{{Kind: "GROUP-EMPTY", Group: "FILTRATION_BASE"}},
				Then: []Effect{{Kind: "DEFAULT-SELECT", Key: "STAINLESS-SF-CONNECTIONS"}},
			},
		},
		{
			name: "answer comparison",
			rule: Rule{
				Key:  "r4",
				When: []Condition{{Kind: CondAnswer, Answer: "persons", Operator: ">=", Value: 6}},
				Then: []Effect{{Kind: EffectRecommend, Key: "STAIRS-WIDE", Strength: "strong"}},
			},
		},
		{
			name: "answer expression and logic",
			rule: Rule{
				Key: "r5",
				When: []Condition{
					{Kind: CondAnswerExpression, Expression: `answers.outdoor == true`},
					{Kind: CondAnswerLogic, Expression: `{"==":[{"var":"answers.voltage"},"400V"]}`},
				},
				Then: []Effect{{Kind: EffectWarning, Message: "outdoor installation needs a 400V supply"}},
			},
		},
		{
			name: "price override zero",
			rule: Rule{
				Key:   "r6",
				Scope: Scope{Kind: ScopeProductType, Value: "hot_tub"},
				Then:  []Effect{{Kind: EffectPriceOverride, Key: "CIRCULATION-PUMP", Price: &zero}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateRule(tt.rule); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Validation: failure cases (table-driven)
// ---------------------------------------------------------------------------

func TestValidateRule_Failures(t *testing.T) {
	base := func(mods ...func(*Rule)) Rule {
		r := Rule{
			Key:  "r1",
			When: []Condition{{Kind: CondOptionSelected, Key: "SAND-FILTER"}},
			Then: []Effect{{Kind: EffectRequire, Key: "SAND-FILTER-BOX"}},
		}
		for _, m := range mods {
			m(&r)
		}
		return r
	}

	tests := []struct {
		name         string
		rule         Rule
		wantSentinel error
	}{
		{
			name:         "empty rule key",
			rule:         base(func(r *Rule) { r.Key = "" }),
			wantSentinel: ErrInvalidRule,
		},
		{
			name:         "unknown scope",
			rule:         base(func(r *Rule) { r.Scope = Scope{Kind: "tenant", Value: "x"} }),
			wantSentinel: ErrInvalidScope,
		},
		{
			name:         "scope without value",
			rule:         base(func(r *Rule) { r.Scope = Scope{Kind: ScopeProduct} }),
			wantSentinel: ErrInvalidScope,
		},
		{
			name:         "unknown condition kind",
			rule:         base(func(r *Rule) { r.When[0].Kind = "option_maybe_selected" }),
			wantSentinel: ErrUnknownConditionKind,
		},
		{
			name:         "option_selected without key",
			rule:         base(func(r *Rule) { r.When[0].Key = "" }),
			wantSentinel: ErrInvalidCondition,
		},
		{
			name:         "tag any without tags",
			rule:         base(func(r *Rule) { r.When[0] = Condition{Kind: CondOptionTagSelectedAny} }),
			wantSentinel: ErrInvalidCondition,
		},
		{
			name: "answer with bad operator",
			rule: base(func(r *Rule) {
				r.When[0] = Condition{Kind: CondAnswer, Answer: "x", Operator: "between", Value: 1}
			}),
			wantSentinel: ErrInvalidCondition,
		},
		{
			name:         "broken CEL",
			rule:         base(func(r *Rule) { r.When[0] = Condition{Kind: CondAnswerExpression, Expression: "answers.x =="} }),
			wantSentinel: ErrInvalidCondition,
		},
		{
			name:         "broken JSON Logic",
			rule:         base(func(r *Rule) { r.When[0] = Condition{Kind: CondAnswerLogic, Expression: `{"==":`} }),
			wantSentinel: ErrInvalidCondition,
		},
		{
			name:         "no effects",
			rule:         base(func(r *Rule) { r.Then = nil }),
			wantSentinel: ErrInvalidEffect,
		},
		{
			name:         "unknown effect kind",
			rule:         base(func(r *Rule) { r.Then[0].Kind = "teleport" }),
			wantSentinel: ErrUnknownEffectKind,
		},
		{
			name:         "forbid without key",
			rule:         base(func(r *Rule) { r.Then[0] = Effect{Kind: EffectForbid} }),
			wantSentinel: ErrInvalidEffect,
		},
		{
			name:         "prefix without prefix",
			rule:         base(func(r *Rule) { r.Then[0] = Effect{Kind: EffectDisableByPrefix} }),
			wantSentinel: ErrInvalidEffect,
		},
		{
			name:         "warning without message",
			rule:         base(func(r *Rule) { r.Then[0] = Effect{Kind: EffectWarning} }),
			wantSentinel: ErrInvalidEffect,
		},
		{
			name:         "price override without price",
			rule:         base(func(r *Rule) { r.Then[0] = Effect{Kind: EffectPriceOverride, Key: "K"} }),
			wantSentinel: ErrInvalidEffect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(tt.rule)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantSentinel) {
				t.Errorf("error = %v; want sentinel %v", err, tt.wantSentinel)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Compile
// ---------------------------------------------------------------------------

func TestCompile_OrderAndNormalization(t *testing.T) {
	set, err := Compile([]Rule{
		{Key: "low", Priority: 1, Active: true, Then: []Effect{{Kind: "WARNING", Message: "low"}}},
		{Key: "off", Priority: 99, Active: false, Then: []Effect{{Kind: EffectWarning, Message: "off"}}},
		{Key: "high", Priority: 10, Active: true, Then: []Effect{{Kind: EffectWarning, Message: "high"}}},
		{Key: "tie", Priority: 1, Active: true,
			When: []Condition{{Kind: "ANSWER-EXPRESSION", Expression: "answers.size > 2"}},
			Then: []Effect{{Kind: EffectWarning, Message: "tie"}}},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if set.Len() != 3 || set.Total() != 4 {
		t.Fatalf("Len/Total = %d/%d, want 3/4", set.Len(), set.Total())
	}
	got := []string{}
	for _, r := range set.Rules() {
		got = append(got, r.Key)
	}
	want := []string{"high", "low", "tie"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	low := set.Rules()[1]
	if low.Then[0].Kind != EffectWarning {
		t.Errorf("effect kind not normalized: %q", low.Then[0].Kind)
	}
	tie := set.Rules()[2]
	if tie.Conditions[0].Kind != CondAnswerExpression || tie.Conditions[0].Program == nil {
		t.Errorf("expression condition not compiled: %+v", tie.Conditions[0])
	}
}

func TestCompile_RejectsDuplicatesAndInvalid(t *testing.T) {
	_, err := Compile([]Rule{
		{Key: "r", Active: true, Then: []Effect{{Kind: EffectWarning, Message: "a"}}},
		{Key: "r", Active: true, Then: []Effect{{Kind: EffectWarning, Message: "b"}}},
	})
	if !errors.Is(err, ErrDuplicateRule) {
		t.Fatalf("expected ErrDuplicateRule, got %v", err)
	}

	_, err = Compile([]Rule{{Key: "bad", Active: false, Then: []Effect{{Kind: "nope", Key: "x"}}}})
	if !errors.Is(err, ErrUnknownEffectKind) {
		t.Fatalf("inactive rules must still be validated, got %v", err)
	}
}

func TestSetApplicable(t *testing.T) {
	set, err := Compile([]Rule{
		{Key: "tub", Active: true, Scope: Scope{Kind: ScopeProductType, Value: "hot_tub"}, Then: []Effect{{Kind: EffectWarning, Message: "t"}}},
		{Key: "sauna", Active: true, Scope: Scope{Kind: ScopeProductType, Value: "sauna"}, Then: []Effect{{Kind: EffectWarning, Message: "s"}}},
		{Key: "all", Active: true, Then: []Effect{{Kind: EffectWarning, Message: "a"}}},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	got := set.Applicable(ScopeTarget{ProductType: "hot_tub"})
	if len(got) != 2 || got[0].Key != "tub" || got[1].Key != "all" {
		t.Fatalf("Applicable = %v", got)
	}

	var nilSet *Set
	if nilSet.Len() != 0 || nilSet.Applicable(ScopeTarget{}) != nil {
		t.Fatal("nil set must behave as empty")
	}
}
