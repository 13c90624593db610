package answers

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Operator compares an answer from the answers bag with a rule value.
type Operator string

// Supported answer operators (string values for clean JSON/YAML serialization).
const (
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "not_equals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpRegex      Operator = "regex"
	OpGT         Operator = "gt"
	OpLT         Operator = "lt"
	OpGTE        Operator = "gte"
	OpLTE        Operator = "lte"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpVersionGT  Operator = "version_gt"
	OpVersionLT  Operator = "version_lt"
)

// OperatorHandler evaluates one operator.
type OperatorHandler interface {
	Check(answer, ruleValue any) bool
}

var (
	operatorHandlers = map[Operator]OperatorHandler{
		OpEquals:     equalsHandler{},
		OpNotEquals:  notEqualsHandler{},
		OpContains:   stringHandler{match: strings.Contains},
		OpStartsWith: stringHandler{match: strings.HasPrefix},
		OpEndsWith:   stringHandler{match: strings.HasSuffix},
		OpRegex:      regexHandler{},
		OpGT:         numericCompareHandler{cmp: func(a, b float64) bool { return a > b }},
		OpLT:         numericCompareHandler{cmp: func(a, b float64) bool { return a < b }},
		OpGTE:        numericCompareHandler{cmp: func(a, b float64) bool { return a >= b }},
		OpLTE:        numericCompareHandler{cmp: func(a, b float64) bool { return a <= b }},
		OpIn:         inListHandler{},
		OpNotIn:      notInListHandler{},
		OpVersionGT:  semverCompareHandler{cmp: func(a, b *semver.Version) bool { return a.GreaterThan(b) }},
		OpVersionLT:  semverCompareHandler{cmp: func(a, b *semver.Version) bool { return a.LessThan(b) }},
	}
	// regexCache keeps compiled patterns keyed by source. Values are *regexp.Regexp.
	regexCache sync.Map
)

// NormalizeOperator maps accepted aliases ("==", "eq", "in_list", ...) to the canonical operator.
// Unknown operators are returned unchanged.
func NormalizeOperator(op Operator) Operator {
	switch strings.ToLower(strings.TrimSpace(string(op))) {
	case "==", "eq", "equals":
		return OpEquals
	case "!=", "neq", "not_equals":
		return OpNotEquals
	case "contains":
		return OpContains
	case "starts_with", "startswith":
		return OpStartsWith
	case "ends_with", "endswith":
		return OpEndsWith
	case "regex", "matches":
		return OpRegex
	case ">", "gt":
		return OpGT
	case "<", "lt":
		return OpLT
	case ">=", "gte":
		return OpGTE
	case "<=", "lte":
		return OpLTE
	case "in", "in_list":
		return OpIn
	case "not_in", "not_in_list", "nin":
		return OpNotIn
	case "semver_gt", "version_gt":
		return OpVersionGT
	case "semver_lt", "version_lt":
		return OpVersionLT
	default:
		return op
	}
}

// SupportedOperator reports whether op (or one of its aliases) has a handler.
func SupportedOperator(op Operator) bool {
	_, ok := operatorHandlers[NormalizeOperator(op)]
	return ok
}

// Check applies op to an answer value and a rule value. Unknown operators never match.
func Check(op Operator, answer, ruleValue any) bool {
	h, ok := operatorHandlers[NormalizeOperator(op)]
	if !ok {
		return false
	}
	return h.Check(answer, ruleValue)
}

type equalsHandler struct{}

func (equalsHandler) Check(answer, ruleValue any) bool {
	if a, ok := toString(answer); ok {
		r, ok := toString(ruleValue)
		return ok && a == r
	}
	if a, ok := toFloat64(answer); ok {
		r, ok := toFloat64(ruleValue)
		return ok && a == r
	}
	if a, ok := answer.(bool); ok {
		r, ok := ruleValue.(bool)
		return ok && a == r
	}
	return false
}

type notEqualsHandler struct{}

func (notEqualsHandler) Check(answer, ruleValue any) bool {
	return !equalsHandler{}.Check(answer, ruleValue)
}

type stringHandler struct {
	match func(s, sub string) bool
}

func (h stringHandler) Check(answer, ruleValue any) bool {
	a, ok := toString(answer)
	if !ok {
		return false
	}
	r, ok := toString(ruleValue)
	if !ok {
		return false
	}
	return h.match(a, r)
}

type regexHandler struct{}

func (regexHandler) Check(answer, ruleValue any) bool {
	a, ok := toString(answer)
	if !ok {
		return false
	}
	pattern, ok := toString(ruleValue)
	if !ok {
		return false
	}
	rx, ok := compiledRegex(pattern)
	if !ok {
		return false
	}
	return rx.MatchString(a)
}

type numericCompareHandler struct {
	cmp func(a, b float64) bool
}

func (h numericCompareHandler) Check(answer, ruleValue any) bool {
	a, ok := toFloat64(answer)
	if !ok {
		return false
	}
	r, ok := toFloat64(ruleValue)
	if !ok {
		return false
	}
	return h.cmp(a, r)
}

type inListHandler struct{}

func (inListHandler) Check(answer, ruleValue any) bool {
	a, ok := toString(answer)
	if !ok {
		return false
	}
	list, ok := ToStringSlice(ruleValue)
	if !ok {
		return false
	}
	for _, item := range list {
		if item == a {
			return true
		}
	}
	return false
}

type notInListHandler struct{}

func (notInListHandler) Check(answer, ruleValue any) bool {
	return !inListHandler{}.Check(answer, ruleValue)
}

type semverCompareHandler struct {
	cmp func(a, b *semver.Version) bool
}

func (h semverCompareHandler) Check(answer, ruleValue any) bool {
	aStr, ok := toString(answer)
	if !ok {
		return false
	}
	rStr, ok := toString(ruleValue)
	if !ok {
		return false
	}
	aVer, err := semver.NewVersion(aStr)
	if err != nil {
		return false
	}
	rVer, err := semver.NewVersion(rStr)
	if err != nil {
		return false
	}
	return h.cmp(aVer, rVer)
}

func compiledRegex(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		rx, ok := cached.(*regexp.Regexp)
		return rx, ok
	}
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	regexCache.Store(pattern, rx)
	return rx, true
}

func toString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ToStringSlice converts []string or a []any holding only strings.
func ToStringSlice(v any) ([]string, bool) {
	switch values := v.(type) {
	case []string:
		return values, true
	case []any:
		result := make([]string, 0, len(values))
		for _, item := range values {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, s)
		}
		return result, true
	default:
		return nil, false
	}
}
