package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/sheet"
	"github.com/roach88/statsim/internal/stat"
)

func TestSnapshot_ModifierSources(t *testing.T) {
	c, err := sheet.Build(testSheet())
	require.NoError(t, err)

	c.AddStatModifier("str", stat.Flat[float64]{Amount: 5}, "ring-left")
	c.AddStatModifier("str", stat.Flat[float64]{Amount: 5}, "ring-right")
	c.AddStatModifier("str", stat.Percent[float64]{Amount: 50, Label: "aura"}, nil)

	snap := Snapshot(c)
	require.Len(t, snap, 3)
	assert.Equal(t, ir.StatState{
		Stat:  "str",
		Base:  10,
		Value: 30,
		Modifiers: []ir.ModifierState{
			{Kind: ir.ModFlat, Value: 5, Source: "ring-left"},
			{Kind: ir.ModFlat, Value: 5, Source: "ring-right"},
			{Kind: ir.ModPercent, Value: 50, Label: "aura"},
		},
	}, snap[0])
	assert.Equal(t, ir.StatState{Stat: "hp", Base: 180, Value: 180}, snap[2])
}

func TestDigest_TracksState(t *testing.T) {
	c, err := sheet.Build(testSheet())
	require.NoError(t, err)

	d1, err := Digest(c)
	require.NoError(t, err)

	c.AddStatModifier("vit", stat.Factor[float64]{Amount: 2}, "potion")
	d2, err := Digest(c)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)

	c.BatchRemoveStatModifiersFromSource("potion")
	d3, err := Digest(c)
	require.NoError(t, err)
	assert.Equal(t, d1, d3)
}

func TestDiffRecords(t *testing.T) {
	before, after := 1.0, 2.0
	recs := DiffRecords([]stat.Diff[string, float64]{
		stat.NewDiff("a", &before, &after),
		stat.NewDiff[string, float64]("b", nil, &after),
	})
	assert.Equal(t, []ir.DiffRecord{
		{Stat: "a", Before: f64(1), After: f64(2)},
		{Stat: "b", After: f64(2)},
	}, recs)
}
