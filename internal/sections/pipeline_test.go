package sections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/selection"
)

func intPtr(v int) *int { return &v }

func testIndex() *catalog.Index {
	groups := []catalog.OptionGroup{
		{Key: "HEATING_BASE", Kind: catalog.KindSingle, SortOrder: 1},
		{Key: "HEATING_EXTRAS", Kind: catalog.KindMulti, SortOrder: 2},
		{Key: "INSULATION_BASE", Kind: catalog.KindBoolean, SortOrder: 3},
		{Key: "EXTRAS_BASE", Kind: catalog.KindMulti, SortOrder: 4, SubSections: []catalog.SubSection{
			{Key: "comfort", Max: intPtr(2)},
			{Key: "care"},
		}},
		{Key: "CARE_KIT", Kind: catalog.KindBoolean, SortOrder: 5},
		{Key: "EMPTY_FLAG", Kind: catalog.KindBoolean, SortOrder: 6},
	}
	options := []catalog.Option{
		{Key: "HEATER-WOOD", GroupKey: "HEATING_BASE"},
		{Key: "HEATER-ELECTRIC", GroupKey: "HEATING_BASE"},
		{Key: "CHIMNEY-EXTENSION", GroupKey: "HEATING_EXTRAS"},
		{Key: "HEATER-COVER", GroupKey: "HEATING_EXTRAS"},
		{Key: "INSULATION-STANDARD", GroupKey: "INSULATION_BASE"},
		{Key: "CUPHOLDER-STANDARD", GroupKey: "EXTRAS_BASE", SubKey: "comfort"},
		{Key: "HEADREST", GroupKey: "EXTRAS_BASE", SubKey: "comfort"},
		{Key: "PILLOW", GroupKey: "EXTRAS_BASE", SubKey: "comfort"},
		{Key: "TOWEL-RAIL", GroupKey: "EXTRAS_BASE", Quantity: &catalog.QuantityRule{Min: 1, Max: 3}},
		{Key: "WATER-CARE-SET", GroupKey: "EXTRAS_BASE", SubKey: "care"},
		{Key: "CARE-KIT-BASIC", GroupKey: "CARE_KIT"},
	}
	return catalog.NewIndex(groups, options)
}

func TestSanitize(t *testing.T) {
	idx := testIndex()
	group := func(key string) catalog.OptionGroup {
		g, ok := idx.Group(key)
		require.True(t, ok, key)
		return g
	}

	tests := []struct {
		name  string
		group string
		in    []string
		want  []string
	}{
		{"single keeps first valid", "HEATING_BASE", []string{"NOPE", "HEATER-ELECTRIC", "HEATER-WOOD"}, []string{"HEATER-ELECTRIC"}},
		{"single drops foreign keys", "HEATING_BASE", []string{"CHIMNEY-EXTENSION"}, []string{}},
		{"boolean sentinel", "INSULATION_BASE", []string{selection.BooleanSentinel}, []string{selection.BooleanSentinel}},
		{"boolean option key collapses", "INSULATION_BASE", []string{"INSULATION-STANDARD"}, []string{selection.BooleanSentinel}},
		{"boolean foreign key", "INSULATION_BASE", []string{"HEATER-WOOD"}, []string{}},
		{"boolean without options", "EMPTY_FLAG", []string{selection.BooleanSentinel}, []string{}},
		{"multi collapses plain repeats", "EXTRAS_BASE", []string{"WATER-CARE-SET", "WATER-CARE-SET"}, []string{"WATER-CARE-SET"}},
		{"multi keeps quantity repeats", "EXTRAS_BASE",
			[]string{"TOWEL-RAIL", "TOWEL-RAIL", "TOWEL-RAIL", "TOWEL-RAIL"},
			[]string{"TOWEL-RAIL", "TOWEL-RAIL", "TOWEL-RAIL", "TOWEL-RAIL"}},
		{"multi leaves sub-section max to cardinality", "EXTRAS_BASE",
			[]string{"CUPHOLDER-STANDARD", "WATER-CARE-SET", "HEADREST", "PILLOW", "CUPHOLDER-STANDARD"},
			[]string{"CUPHOLDER-STANDARD", "WATER-CARE-SET", "HEADREST", "PILLOW"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]string(nil), tt.in...)
			got := Sanitize(group(tt.group), in, idx)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, in, "input must not be modified")
		})
	}
}

func TestPipelineGatesExtras(t *testing.T) {
	idx := testIndex()
	p := Default()

	res := p.Run(Input{
		Index: idx,
		Selection: selection.Selection{
			"HEATING_EXTRAS": {"CHIMNEY-EXTENSION"},
		},
	})

	assert.Empty(t, res.Selection["HEATING_EXTRAS"])
	assert.Equal(t, "Choose a heater first", res.Disabled["CHIMNEY-EXTENSION"])
	assert.Contains(t, res.Disabled, "HEATER-COVER")

	res = p.Run(Input{
		Index: idx,
		Selection: selection.Selection{
			"HEATING_BASE":   {"HEATER-WOOD"},
			"HEATING_EXTRAS": {"CHIMNEY-EXTENSION"},
		},
	})
	assert.Equal(t, []string{"CHIMNEY-EXTENSION"}, res.Selection["HEATING_EXTRAS"])
	assert.Empty(t, res.Disabled)
}

func TestPipelineSanitizesUnclaimedGroups(t *testing.T) {
	res := Default().Run(Input{
		Index: testIndex(),
		Selection: selection.Selection{
			"CARE_KIT":     {"CARE-KIT-BASIC"},
			"NOT_ELIGIBLE": {"SOMETHING"},
		},
	})

	assert.Equal(t, []string{selection.BooleanSentinel}, res.Selection["CARE_KIT"])
	assert.NotContains(t, res.Selection, "NOT_ELIGIBLE")
	assert.Len(t, res.Selection, len(testIndex().GroupKeys()))
}

func TestPipelineIsIdempotent(t *testing.T) {
	idx := testIndex()
	in := selection.Selection{
		"HEATING_BASE":    {"HEATER-WOOD", "HEATER-ELECTRIC"},
		"INSULATION_BASE": {"INSULATION-STANDARD"},
		"EXTRAS_BASE":     {"TOWEL-RAIL", "PILLOW", "TOWEL-RAIL", "HEADREST", "CUPHOLDER-STANDARD"},
	}

	first := Default().Run(Input{Index: idx, Selection: in})
	second := Default().Run(Input{Index: idx, Selection: first.Selection})

	assert.True(t, first.Selection.Equal(second.Selection), "second run changed %v into %v", first.Selection, second.Selection)
	assert.Equal(t, []string{"HEATER-WOOD"}, in["HEATING_BASE"][:1], "input selection must not be modified")
	assert.Len(t, in["HEATING_BASE"], 2)
}

type rogueHandler struct{}

func (rogueHandler) Topic() string      { return "rogue" }
func (rogueHandler) Owns(g string) bool { return g == "CARE_KIT" }
func (rogueHandler) Apply(Input) Output {
	return Output{Groups: map[string][]string{"HEATING_BASE": {"HEATER-ELECTRIC"}}}
}

func TestPipelineIgnoresForeignGroups(t *testing.T) {
	res := New(rogueHandler{}).Run(Input{
		Index:     testIndex(),
		Selection: selection.Selection{"HEATING_BASE": {"HEATER-WOOD"}},
	})
	assert.Equal(t, []string{"HEATER-WOOD"}, res.Selection["HEATING_BASE"])
}

func TestDefaultOrder(t *testing.T) {
	var topics []string
	for _, h := range Default().handlers {
		topics = append(topics, h.Topic())
	}
	assert.Equal(t, []string{
		"base", "heating", "materials", "insulation", "spa", "lighting",
		"lid", "filtration", "stairs", "controlunit", "extras",
	}, topics)
}

func TestPipelineDisabledFollowsSelection(t *testing.T) {
	idx := testIndex()
	p := Default()

	gated := p.Disabled(Input{Index: idx, Selection: selection.Selection{}})
	assert.Equal(t, "Choose a heater first", gated["CHIMNEY-EXTENSION"])
	assert.Contains(t, gated, "HEATER-COVER")

	open := p.Disabled(Input{Index: idx, Selection: selection.Selection{"HEATING_BASE": {"HEATER-WOOD"}}})
	assert.Empty(t, open)
}
