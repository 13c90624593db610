package answers

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// costLimit bounds the work a single expression may perform.
const costLimit = 1_000_000

// Vars is the activation an expression is evaluated against.
type Vars struct {
	Answers     Bag
	Selected    []string
	Tags        []string
	ProductType string
}

// Program is a compiled CEL expression. It is immutable and safe for concurrent use.
type Program struct {
	source string
	prog   cel.Program
}

var celEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("answers", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("selected", cel.ListType(cel.StringType)),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("product_type", cel.StringType),
	)
})

// Compile type-checks a CEL expression and returns a cost-limited program.
//
// Available variables: answers (map), selected (option keys), tags (tags of
// selected options), product_type (string). The expression must yield a bool.
func Compile(expression string) (*Program, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, ErrEmptyExpression
	}
	env, err := celEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, issues.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: expression yields %s, want bool", ErrInvalidExpression, out)
	}

	prog, err := env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return &Program{source: expression, prog: prog}, nil
}

// Source returns the expression text the program was compiled from.
func (p *Program) Source() string {
	return p.source
}

// Eval runs the program. Runtime errors (missing map keys, cost exhaustion) and
// non-bool results evaluate to false together with the error.
func (p *Program) Eval(v Vars) (bool, error) {
	answers := map[string]any(v.Answers)
	if answers == nil {
		answers = map[string]any{}
	}
	selected := v.Selected
	if selected == nil {
		selected = []string{}
	}
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}

	out, _, err := p.prog.Eval(map[string]any{
		"answers":      answers,
		"selected":     selected,
		"tags":         tags,
		"product_type": v.ProductType,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression %q yielded %T, want bool", ErrInvalidExpression, p.source, out.Value())
	}
	return b, nil
}
