package answers

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		op        Operator
		answer    any
		ruleValue any
		want      bool
	}{
		{name: "equals string", op: OpEquals, answer: "outdoor", ruleValue: "outdoor", want: true},
		{name: "equals alias", op: Operator("=="), answer: "outdoor", ruleValue: "indoor", want: false},
		{name: "equals bool", op: OpEquals, answer: true, ruleValue: true, want: true},
		{name: "not equals", op: OpNotEquals, answer: "230V", ruleValue: "400V", want: true},
		{name: "contains", op: OpContains, answer: "roof-terrace", ruleValue: "roof", want: true},
		{name: "starts_with", op: OpStartsWith, answer: "DE-BY", ruleValue: "DE", want: true},
		{name: "ends_with", op: OpEndsWith, answer: "DE-BY", ruleValue: "BY", want: true},
		{name: "regex", op: OpRegex, answer: "TUB-200", ruleValue: `^TUB-\d+$`, want: true},
		{name: "regex invalid pattern", op: OpRegex, answer: "x", ruleValue: "(", want: false},
		{name: "gt int float", op: OpGT, answer: 400, ruleValue: 230.0, want: true},
		{name: "lte json number", op: OpLTE, answer: json.Number("3"), ruleValue: 3, want: true},
		{name: "in []any", op: OpIn, answer: "AT", ruleValue: []any{"DE", "AT"}, want: true},
		{name: "not_in alias", op: Operator("nin"), answer: "CH", ruleValue: []string{"DE", "AT"}, want: true},
		{name: "version gt", op: OpVersionGT, answer: "2.1.0", ruleValue: "2.0.9", want: true},
		{name: "version lt invalid", op: OpVersionLT, answer: "abc", ruleValue: "1.0.0", want: false},
		{name: "type mismatch", op: OpContains, answer: 12, ruleValue: "1", want: false},
		{name: "unknown operator", op: Operator("approximately"), answer: 1, ruleValue: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Check(tt.op, tt.answer, tt.ruleValue); got != tt.want {
				t.Fatalf("Check(%q) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}

func TestSupportedOperator(t *testing.T) {
	if !SupportedOperator(Operator(">=")) {
		t.Fatal("expected >= to be supported")
	}
	if SupportedOperator(Operator("between")) {
		t.Fatal("expected between to be unsupported")
	}
}

func TestBagLookup(t *testing.T) {
	bag := Bag{
		"outdoor": true,
		"site":    map[string]any{"voltage": "400V"},
	}

	if v, ok := bag.Lookup("outdoor"); !ok || v != true {
		t.Fatalf("Lookup(outdoor) = %v, %v", v, ok)
	}
	if v, ok := bag.Lookup("site.voltage"); !ok || v != "400V" {
		t.Fatalf("Lookup(site.voltage) = %v, %v", v, ok)
	}
	if _, ok := bag.Lookup("site.phase"); ok {
		t.Fatal("expected missing nested answer")
	}
	if _, ok := Bag(nil).Lookup("outdoor"); ok {
		t.Fatal("expected nil bag lookup to miss")
	}
	if !bag.Truthy("outdoor") {
		t.Fatal("expected outdoor to be truthy")
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{true, true},
		{false, false},
		{0.0, false},
		{2.0, true},
		{"", false},
		{"false", false},
		{"yes", true},
		{[]any{}, false},
		{map[string]any{"a": 1}, true},
	}
	for _, tt := range tests {
		if got := IsTruthy(tt.v); got != tt.want {
			t.Errorf("IsTruthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestEvaluateLogic(t *testing.T) {
	data := map[string]any{"answers": map[string]any{"outdoor": true, "persons": 6.0}}

	got, err := EvaluateLogic(`{"and":[{"var":"answers.outdoor"},{">":[{"var":"answers.persons"},4]}]}`, data)
	if err != nil {
		t.Fatalf("EvaluateLogic: %v", err)
	}
	if !got {
		t.Fatal("expected logic to match")
	}

	if _, err := EvaluateLogic("   ", data); !errors.Is(err, ErrEmptyExpression) {
		t.Fatalf("expected ErrEmptyExpression, got %v", err)
	}
	if err := ValidateLogic(`{"var":`); !errors.Is(err, ErrInvalidExpression) {
		t.Fatalf("expected ErrInvalidExpression, got %v", err)
	}
	if err := ValidateLogic(`{"==":[1,1]}`); err != nil {
		t.Fatalf("ValidateLogic: %v", err)
	}
}

func TestCompileAndEval(t *testing.T) {
	prog, err := Compile(`answers.outdoor == true && "ELECTRIC" in tags && product_type == "hot_tub"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.HasPrefix(prog.Source(), "answers.outdoor") {
		t.Errorf("Source() = %q", prog.Source())
	}

	got, err := prog.Eval(Vars{
		Answers:     Bag{"outdoor": true},
		Tags:        []string{"ELECTRIC"},
		ProductType: "hot_tub",
	})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !got {
		t.Fatal("expected expression to match")
	}

	// "in tags" is false, so && absorbs the missing-key error.
	got, err = prog.Eval(Vars{Answers: Bag{}, ProductType: "hot_tub"})
	if err != nil || got {
		t.Fatalf("Eval(empty) = %v, %v; want false, nil", got, err)
	}

	lone, err := Compile(`answers.outdoor == true`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err = lone.Eval(Vars{Answers: Bag{}})
	if err == nil {
		t.Fatal("expected missing answer to produce an evaluation error")
	}
	if got {
		t.Fatal("expected false on evaluation error")
	}
}

func TestCompileRejectsInvalid(t *testing.T) {
	tests := []string{
		"",
		"answers.outdoor ==",
		`"just a string"`,
		"unknown_var > 1",
	}
	for _, expr := range tests {
		if _, err := Compile(expr); err == nil {
			t.Errorf("Compile(%q) expected error", expr)
		}
	}
}
