// Package selection defines the canonical representation of a buyer's
// choices: a flat map from option-group key to the ordered option keys chosen
// in that group. Quantity is expressed by repeating a key.
package selection

import (
	"slices"
	"sort"
	"strings"

	"github.com/TimurManjosov/goconfigurator/internal/answers"
	"github.com/TimurManjosov/goconfigurator/internal/catalog"
)

// BooleanSentinel is the only value a BOOLEAN group can hold. It stands for
// the group's boolean option.
const BooleanSentinel = catalog.ReservedKeyPrefix + "selected__"

// Selection maps group keys to the option keys selected in them.
type Selection map[string][]string

// Normalize coerces a raw group-keyed payload into a Selection covering every
// group in groups. BOOLEAN groups resolve to the sentinel when the raw value is
// truthy. Other groups collect every string found under their key; a bare
// string counts as one element. Unknown keys are ignored and absent groups
// resolve to an empty list.
func Normalize(raw map[string]any, groups []catalog.OptionGroup) Selection {
	out := make(Selection, len(groups))
	for _, g := range groups {
		v, ok := raw[g.Key]
		if catalog.NormalizeKind(g.Kind) == catalog.KindBoolean {
			if ok && answers.IsTruthy(v) {
				out[g.Key] = []string{BooleanSentinel}
			} else {
				out[g.Key] = []string{}
			}
			continue
		}
		keys := []string{}
		if ok {
			keys = collectStrings(v, keys)
		}
		out[g.Key] = keys
	}
	return out
}

// Flatten walks an arbitrarily nested payload and assigns every string leaf
// that names a known option to the option's group, keeping duplicates.
// Map entries are visited in key order. Non-string leaves are ignored.
func Flatten(raw any, optionToGroup map[string]string) map[string][]string {
	out := make(map[string][]string)
	flattenInto(raw, optionToGroup, out)
	return out
}

func flattenInto(v any, optionToGroup map[string]string, out map[string][]string) {
	switch t := v.(type) {
	case string:
		if g, ok := optionToGroup[t]; ok {
			out[g] = append(out[g], t)
		}
	case []string:
		for _, s := range t {
			flattenInto(s, optionToGroup, out)
		}
	case []any:
		for _, e := range t {
			flattenInto(e, optionToGroup, out)
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			flattenInto(t[k], optionToGroup, out)
		}
	case map[string][]string:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenInto(t[k], optionToGroup, out)
		}
	}
}

// FromRaw builds a Selection from a caller payload. Top-level entries keyed by
// a group go through Normalize; anything else (for example a nested per-topic
// object) is flattened. Flattened keys are appended after the group-keyed ones.
// Input that is not a map yields an empty Selection over groups.
func FromRaw(raw any, groups []catalog.OptionGroup, optionToGroup map[string]string) Selection {
	m := asMap(raw)

	known := make(map[string]bool, len(groups))
	for _, g := range groups {
		known[g.Key] = true
	}

	direct := make(map[string]any, len(m))
	rest := make(map[string]any, len(m))
	for k, v := range m {
		if known[k] {
			direct[k] = v
		} else {
			rest[k] = v
		}
	}

	out := Normalize(direct, groups)
	for g, keys := range Flatten(rest, optionToGroup) {
		if known[g] {
			out[g] = append(out[g], keys...)
		}
	}
	return out
}

func asMap(raw any) map[string]any {
	switch t := raw.(type) {
	case map[string]any:
		return t
	case Selection:
		return toAnyMap(t)
	case map[string][]string:
		return toAnyMap(t)
	}
	return nil
}

func toAnyMap(m map[string][]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func collectStrings(v any, acc []string) []string {
	switch t := v.(type) {
	case string:
		return append(acc, t)
	case []string:
		return append(acc, t...)
	case []any:
		for _, e := range t {
			acc = collectStrings(e, acc)
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			acc = collectStrings(t[k], acc)
		}
	}
	return acc
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = append([]string{}, v...)
	}
	return out
}

// Equal compares two selections group by group. A missing group and an empty
// list are equal.
func (s Selection) Equal(o Selection) bool {
	for k, v := range s {
		if !slices.Equal(v, o[k]) && !(len(v) == 0 && len(o[k]) == 0) {
			return false
		}
	}
	for k, v := range o {
		if _, ok := s[k]; !ok && len(v) > 0 {
			return false
		}
	}
	return true
}

// Contains reports whether key is selected in any group.
func (s Selection) Contains(key string) bool {
	for _, v := range s {
		if slices.Contains(v, key) {
			return true
		}
	}
	return false
}

// Remove deletes every occurrence of key from group and reports whether
// anything was removed.
func (s Selection) Remove(group, key string) bool {
	v, ok := s[group]
	if !ok {
		return false
	}
	kept := slices.DeleteFunc(append([]string{}, v...), func(k string) bool { return k == key })
	if len(kept) == len(v) {
		return false
	}
	s[group] = kept
	return true
}

// Occurrences returns how many times key appears in group.
func (s Selection) Occurrences(group, key string) int {
	n := 0
	for _, k := range s[group] {
		if k == key {
			n++
		}
	}
	return n
}

// Keys returns the group keys in sorted order.
func (s Selection) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Topics projects the selection into a nested per-topic view:
// "HEATING_BASE" is reported as topics["heating"]["base"]. Groups without a
// topic prefix land under their lower-cased key with an empty sub-key.
// The projection is derived on demand and never fed back.
func (s Selection) Topics() map[string]map[string][]string {
	out := make(map[string]map[string][]string)
	for group, keys := range s {
		topic, sub, _ := strings.Cut(strings.ToLower(group), "_")
		if out[topic] == nil {
			out[topic] = make(map[string][]string)
		}
		out[topic][sub] = append([]string{}, keys...)
	}
	return out
}

// Distinct returns keys without repeats, in first-seen order.
func Distinct(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
