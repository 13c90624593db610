// Package answers evaluates rule predicates over the auxiliary answers bag: the
// free-form, non-purchasable toggles a buyer answers while configuring a product
// ("will the tub stand outdoors?", "mains voltage", ...).
//
// Three predicate flavours are supported:
//   - operator comparisons (Check) against a single answer,
//   - JSON Logic expressions (EvaluateLogic, jsonlogic.com),
//   - CEL expressions (Compile / Program.Eval), compiled once at catalog load.
package answers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
)

// Bag is the auxiliary answers bag supplied by the caller.
type Bag map[string]any

// ErrInvalidExpression is returned when an expression does not parse or compile.
var ErrInvalidExpression = errors.New("invalid expression")

// ErrEmptyExpression is returned when an expression is empty or whitespace.
var ErrEmptyExpression = errors.New("invalid expression: empty or whitespace")

// Lookup returns the answer stored under key. Dotted keys walk nested maps
// ("site.voltage"). A missing answer returns ok=false.
func (b Bag) Lookup(key string) (any, bool) {
	if b == nil {
		return nil, false
	}
	if v, ok := b[key]; ok {
		return v, true
	}
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return nil, false
	}
	var cur any = map[string]any(b)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Truthy reports whether the answer under key is present and truthy.
func (b Bag) Truthy(key string) bool {
	v, ok := b.Lookup(key)
	return ok && IsTruthy(v)
}

// EvaluateLogic evaluates a JSON Logic expression against data.
// Returns an error if the expression is invalid.
func EvaluateLogic(expression string, data map[string]any) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, ErrEmptyExpression
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return false, err
	}

	var resultBuf bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), bytes.NewReader(dataBytes), &resultBuf); err != nil {
		return false, ErrInvalidExpression
	}

	var result any
	if err := json.Unmarshal(resultBuf.Bytes(), &result); err != nil {
		return false, err
	}
	return IsTruthy(result), nil
}

// ValidateLogic checks that expression is valid JSON Logic by applying it to empty data.
func ValidateLogic(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return ErrEmptyExpression
	}

	var rule any
	if err := json.Unmarshal([]byte(expression), &rule); err != nil {
		return ErrInvalidExpression
	}

	var resultBuf bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), strings.NewReader("{}"), &resultBuf); err != nil {
		return ErrInvalidExpression
	}
	return nil
}

// IsTruthy follows JavaScript-like truthiness: non-zero numbers, non-empty strings,
// non-empty slices/maps and true are truthy.
func IsTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case string:
		return val != "" && !strings.EqualFold(val, "false") && val != "0"
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
