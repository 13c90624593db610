package catalog

import "sort"

// Index is a read-only lookup structure over a set of groups and options.
// Evaluation builds one per call from the options eligible for the product.
type Index struct {
	groups  map[string]OptionGroup
	order   []string
	options map[string]Option
	byGroup map[string][]string
	ownerOf map[string]string
}

// NewIndex indexes groups and options. Groups are ordered by SortOrder, then key.
// Options whose group is not among groups are left out; within a group options
// keep their input order. The first occurrence of a duplicate key wins.
func NewIndex(groups []OptionGroup, options []Option) *Index {
	idx := &Index{
		groups:  make(map[string]OptionGroup, len(groups)),
		order:   make([]string, 0, len(groups)),
		options: make(map[string]Option, len(options)),
		byGroup: make(map[string][]string, len(groups)),
		ownerOf: make(map[string]string, len(options)),
	}

	for _, g := range groups {
		if _, dup := idx.groups[g.Key]; dup {
			continue
		}
		g.Kind = NormalizeKind(g.Kind)
		idx.groups[g.Key] = g
		idx.order = append(idx.order, g.Key)
	}
	sort.SliceStable(idx.order, func(i, j int) bool {
		a, b := idx.groups[idx.order[i]], idx.groups[idx.order[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.Key < b.Key
	})

	for _, o := range options {
		if _, ok := idx.groups[o.GroupKey]; !ok {
			continue
		}
		if _, dup := idx.options[o.Key]; dup {
			continue
		}
		idx.options[o.Key] = o
		idx.byGroup[o.GroupKey] = append(idx.byGroup[o.GroupKey], o.Key)
		idx.ownerOf[o.Key] = o.GroupKey
	}
	return idx
}

// Group returns the group with the given key.
func (x *Index) Group(key string) (OptionGroup, bool) {
	g, ok := x.groups[key]
	return g, ok
}

// Groups returns all groups in display order.
func (x *Index) Groups() []OptionGroup {
	out := make([]OptionGroup, 0, len(x.order))
	for _, k := range x.order {
		out = append(out, x.groups[k])
	}
	return out
}

// GroupKeys returns the group keys in display order.
func (x *Index) GroupKeys() []string {
	return append([]string(nil), x.order...)
}

// Option returns the option with the given key.
func (x *Index) Option(key string) (Option, bool) {
	o, ok := x.options[key]
	return o, ok
}

// Has reports whether key is an indexed option.
func (x *Index) Has(key string) bool {
	_, ok := x.options[key]
	return ok
}

// GroupOf returns the key of the group owning option key.
func (x *Index) GroupOf(key string) (string, bool) {
	g, ok := x.ownerOf[key]
	return g, ok
}

// GroupOptions returns the options of a group in catalog order.
func (x *Index) GroupOptions(groupKey string) []Option {
	keys := x.byGroup[groupKey]
	out := make([]Option, 0, len(keys))
	for _, k := range keys {
		out = append(out, x.options[k])
	}
	return out
}

// BooleanOption returns the option a BOOLEAN group's sentinel stands for:
// the first option of the group.
func (x *Index) BooleanOption(groupKey string) (Option, bool) {
	keys := x.byGroup[groupKey]
	if len(keys) == 0 {
		return Option{}, false
	}
	return x.options[keys[0]], true
}

// OptionToGroup returns a fresh option key -> group key map.
func (x *Index) OptionToGroup() map[string]string {
	out := make(map[string]string, len(x.ownerOf))
	for k, g := range x.ownerOf {
		out[k] = g
	}
	return out
}

// Len returns the number of indexed options.
func (x *Index) Len() int {
	return len(x.options)
}
