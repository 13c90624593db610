// Package sections normalizes a selection topic by topic before and after
// rule evaluation. Each topic owns the option groups sharing its key prefix
// and may disable options locally (for example heater extras until a heater
// is chosen).
package sections

import (
	"strings"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
)

// Input is what a handler sees. Index covers only the groups and options
// eligible for Product.
type Input struct {
	Product   catalog.Product
	Index     *catalog.Index
	Selection selection.Selection
}

// Output carries updated lists for the handler's own groups and the options
// it disabled (key -> reason).
type Output struct {
	Groups   map[string][]string
	Disabled map[string]string
}

// Handler normalizes one topic. Apply must be pure and must only return
// groups for which Owns is true.
type Handler interface {
	Topic() string
	Owns(groupKey string) bool
	Apply(in Input) Output
}

// Result is the outcome of a pipeline run.
type Result struct {
	Selection selection.Selection
	Disabled  map[string]string
}

// Pipeline runs handlers in declaration order, then sanitizes every group no
// handler claimed.
type Pipeline struct {
	handlers []Handler
}

// New creates a pipeline from handlers, run in the given order.
func New(handlers ...Handler) *Pipeline {
	return &Pipeline{handlers: handlers}
}

// Default returns the standard topic order: base, heating, materials,
// insulation, spa, lighting, lid, filtration, stairs, control unit, extras.
func Default() *Pipeline {
	return New(
		NewTopic("base", "BASE_"),
		NewGatedTopic("heating", "HEATING_", "Choose a heater first"),
		NewTopic("materials", "MATERIALS_"),
		NewTopic("insulation", "INSULATION_"),
		NewGatedTopic("spa", "SPASYSTEM_", "Choose a spa system first"),
		NewGatedTopic("lighting", "LIGHTING_", "Choose a lighting option first"),
		NewTopic("lid", "LID_"),
		NewTopic("filtration", "FILTRATION_"),
		NewTopic("stairs", "STAIRS_"),
		NewGatedTopic("controlunit", "CONTROLUNIT_", "Choose a control unit first"),
		NewTopic("extras", "EXTRAS_"),
	)
}

// Disabled returns the options the handlers disable for in.Selection as it
// stands, without normalizing it first. The rule engine calls it at the start
// of every pass so a gate follows selections made by rules.
func (p *Pipeline) Disabled(in Input) map[string]string {
	disabled := make(map[string]string)
	for _, h := range p.handlers {
		out := h.Apply(Input{Product: in.Product, Index: in.Index, Selection: in.Selection.Clone()})
		for k, reason := range out.Disabled {
			if _, dup := disabled[k]; !dup {
				disabled[k] = reason
			}
		}
	}
	return disabled
}

// Run applies every handler to a copy of in.Selection. The returned selection
// holds exactly the groups of in.Index, each valid for its kind.
func (p *Pipeline) Run(in Input) Result {
	current := make(selection.Selection, len(in.Index.GroupKeys()))
	for _, g := range in.Index.GroupKeys() {
		current[g] = append([]string{}, in.Selection[g]...)
	}
	disabled := make(map[string]string)

	for _, h := range p.handlers {
		out := h.Apply(Input{Product: in.Product, Index: in.Index, Selection: current.Clone()})
		for g, keys := range out.Groups {
			if _, known := current[g]; known && h.Owns(g) {
				current[g] = keys
			}
		}
		for k, reason := range out.Disabled {
			if _, dup := disabled[k]; !dup {
				disabled[k] = reason
			}
		}
	}

	for _, g := range in.Index.Groups() {
		if p.claimed(g.Key) {
			continue
		}
		current[g.Key] = Sanitize(g, current[g.Key], in.Index)
	}
	return Result{Selection: current, Disabled: disabled}
}

func (p *Pipeline) claimed(groupKey string) bool {
	for _, h := range p.handlers {
		if h.Owns(groupKey) {
			return true
		}
	}
	return false
}

// Topic is a prefix-owning handler. A gated topic disables every option of
// its <PREFIX>EXTRAS group while its <PREFIX>BASE group is empty.
type Topic struct {
	name   string
	prefix string
	gate   string
}

// NewTopic creates a handler owning every group whose key starts with prefix.
func NewTopic(name, prefix string) *Topic {
	return &Topic{name: name, prefix: prefix}
}

// NewGatedTopic is NewTopic with extras gated on the base group; reason is
// reported for each disabled option.
func NewGatedTopic(name, prefix, reason string) *Topic {
	return &Topic{name: name, prefix: prefix, gate: reason}
}

func (t *Topic) Topic() string { return t.name }

func (t *Topic) Owns(groupKey string) bool { return strings.HasPrefix(groupKey, t.prefix) }

// Apply sanitizes the topic's groups and applies the base/extras gate.
func (t *Topic) Apply(in Input) Output {
	out := Output{Groups: make(map[string][]string), Disabled: make(map[string]string)}

	for _, g := range in.Index.Groups() {
		if !t.Owns(g.Key) {
			continue
		}
		out.Groups[g.Key] = Sanitize(g, in.Selection[g.Key], in.Index)
	}

	if t.gate == "" {
		return out
	}
	base, extras := t.prefix+"BASE", t.prefix+"EXTRAS"
	if _, ok := in.Index.Group(extras); !ok {
		return out
	}
	if _, ok := in.Index.Group(base); ok && len(out.Groups[base]) > 0 {
		return out
	}
	for _, o := range in.Index.GroupOptions(extras) {
		out.Disabled[o.Key] = t.gate
	}
	out.Groups[extras] = []string{}
	return out
}
