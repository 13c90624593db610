package sections

import (
	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
)

// Sanitize returns keys reduced to a list that is valid for group:
//
//   - keys that are not eligible options of the group are dropped
//   - BOOLEAN collapses to the sentinel, if the group has an eligible option
//   - SINGLE keeps the first valid key
//   - MULTI keeps valid keys in order; repeats survive only for options with
//     a quantity rule
//
// Group, sub-section and quantity bounds are left to the cardinality
// enforcer, which reports what it cuts. The input slice is never modified.
func Sanitize(group catalog.OptionGroup, keys []string, idx *catalog.Index) []string {
	switch catalog.NormalizeKind(group.Kind) {
	case catalog.KindBoolean:
		return sanitizeBoolean(group, keys, idx)
	case catalog.KindSingle:
		for _, k := range keys {
			if owned(group, k, idx) {
				return []string{k}
			}
		}
		return []string{}
	default:
		return sanitizeMulti(group, keys, idx)
	}
}

func owned(group catalog.OptionGroup, key string, idx *catalog.Index) bool {
	g, ok := idx.GroupOf(key)
	return ok && g == group.Key
}

func sanitizeBoolean(group catalog.OptionGroup, keys []string, idx *catalog.Index) []string {
	if _, ok := idx.BooleanOption(group.Key); !ok {
		return []string{}
	}
	for _, k := range keys {
		if k == selection.BooleanSentinel || owned(group, k, idx) {
			return []string{selection.BooleanSentinel}
		}
	}
	return []string{}
}

func sanitizeMulti(group catalog.OptionGroup, keys []string, idx *catalog.Index) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))

	for _, k := range keys {
		if !owned(group, k, idx) {
			continue
		}
		if seen[k] {
			if opt, _ := idx.Option(k); opt.Quantity == nil {
				continue
			}
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
