package action

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/sheet"
	"github.com/roach88/statsim/internal/stat"
)

func newContainer(t *testing.T) *stat.Container[string, float64] {
	t.Helper()
	c, err := sheet.Build(&ir.SheetSpec{
		Name: "test",
		Stats: []ir.StatSpec{
			{ID: "str", Kind: ir.KindPrimary, Base: 10},
			{ID: "atk", Kind: ir.KindDerived, Formula: sheet.FormulaSum, Deps: []string{"str"}, Constant: 2},
		},
	})
	require.NoError(t, err)
	return c
}

func apply(t *testing.T, c *stat.Container[string, float64], spec ir.ActionSpec) error {
	t.Helper()
	a, err := Compile(spec)
	require.NoError(t, err)
	return a(c)
}

func TestCompile_SetBase(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpSetBase, Stat: "str", Value: 20}))
	assert.Equal(t, 20.0, c.ValueOr("str", -1))
	assert.Equal(t, 22.0, c.ValueOr("atk", -1))
}

func TestCompile_SetBaseOnDerivedIsUnsupported(t *testing.T) {
	c := newContainer(t)
	err := apply(t, c, ir.ActionSpec{Op: ir.OpSetBase, Stat: "atk", Value: 1})
	assert.True(t, stat.IsUnsupportedOperation(err))
}

func TestCompile_ModifierLifecycle(t *testing.T) {
	c := newContainer(t)

	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpAddModifier, Stat: "str", Kind: ir.ModFlat, Value: 5, Source: "sword"}))
	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpAddModifier, Stat: "str", Kind: ir.ModPercent, Value: 100, Source: "sword"}))
	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpAddModifier, Stat: "str", Kind: ir.ModFlat, Value: 1}))
	assert.Equal(t, 32.0, c.ValueOr("str", -1)) // (10+5+1) * 2
	assert.Equal(t, 34.0, c.ValueOr("atk", -1))

	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpRemoveModifier, Stat: "str", Kind: ir.ModFlat, Value: 1}))
	assert.Equal(t, 30.0, c.ValueOr("str", -1))

	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpRemoveSource, Source: "sword"}))
	assert.Equal(t, 10.0, c.ValueOr("str", -1))
	assert.Zero(t, c.Tracker().Len())
}

func TestCompile_RemoveModifierUntracksSource(t *testing.T) {
	c := newContainer(t)

	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpAddModifier, Stat: "str", Kind: ir.ModFactor, Value: 3, Source: "potion"}))
	assert.Equal(t, 30.0, c.ValueOr("str", -1))

	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpRemoveModifier, Stat: "str", Kind: ir.ModFactor, Value: 3, Source: "potion"}))
	assert.Equal(t, 10.0, c.ValueOr("str", -1))
	assert.Empty(t, c.Tracker().Links("potion"))
}

func TestCompile_ClearModifiers(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpAddModifier, Stat: "str", Kind: ir.ModOverride, Value: 99, Source: "curse"}))
	assert.Equal(t, 99.0, c.ValueOr("str", -1))

	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpClearModifiers, Stat: "str"}))
	assert.Equal(t, 10.0, c.ValueOr("str", -1))
	assert.Empty(t, c.Tracker().Links("curse"))
}

func TestCompile_AddAndRemoveStat(t *testing.T) {
	c := newContainer(t)

	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpAddStat, Stat: "luck", Value: 7}))
	assert.Equal(t, 7.0, c.ValueOr("luck", -1))

	err := apply(t, c, ir.ActionSpec{Op: ir.OpAddStat, Stat: "luck", Value: 1})
	assert.True(t, stat.IsDuplicateStat(err))

	require.NoError(t, apply(t, c, ir.ActionSpec{Op: ir.OpRemoveStat, Stat: "str"}))
	assert.False(t, c.Has("str"))
	assert.Equal(t, 2.0, c.ValueOr("atk", -1), "dependents see the stat disappear")
}

func TestCompile_UnknownStat(t *testing.T) {
	c := newContainer(t)
	specs := []ir.ActionSpec{
		{Op: ir.OpSetBase, Stat: "ghost", Value: 1},
		{Op: ir.OpAddModifier, Stat: "ghost", Kind: ir.ModFlat, Value: 1},
		{Op: ir.OpRemoveModifier, Stat: "ghost", Kind: ir.ModFlat, Value: 1},
		{Op: ir.OpClearModifiers, Stat: "ghost"},
		{Op: ir.OpRemoveStat, Stat: "ghost"},
	}
	for _, spec := range specs {
		t.Run(spec.Op, func(t *testing.T) {
			err := apply(t, c, spec)
			assert.True(t, errors.Is(err, ErrUnknownStat))
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(ir.ActionSpec{Op: "explode"})
	require.Error(t, err)
	assert.True(t, IsInvalid(err))
	assert.Contains(t, err.Error(), `unknown op "explode"`)

	_, err = Compile(ir.ActionSpec{Op: ir.OpAddModifier, Kind: "bonus"})
	require.Error(t, err)
	var ie *InvalidError
	require.True(t, errors.As(err, &ie))
	assert.Len(t, ie.Problems, 2)
	assert.Contains(t, err.Error(), "invalid add_modifier action: stat: stat is required; kind:")

	_, err = Compile(ir.ActionSpec{})
	assert.ErrorContains(t, err, "invalid <empty> action")
}

func TestSequence(t *testing.T) {
	c := newContainer(t)
	seq, err := Sequence([]ir.ActionSpec{
		{Op: ir.OpSetBase, Stat: "str", Value: 12},
		{Op: ir.OpAddModifier, Stat: "atk", Kind: ir.ModFlat, Value: 3, Source: "ring"},
	})
	require.NoError(t, err)
	require.NoError(t, seq(c))
	assert.Equal(t, 17.0, c.ValueOr("atk", -1))

	failing, err := Sequence([]ir.ActionSpec{
		{Op: ir.OpSetBase, Stat: "str", Value: 1},
		{Op: ir.OpRemoveStat, Stat: "ghost"},
	})
	require.NoError(t, err)
	err = failing(c)
	assert.ErrorContains(t, err, "action 1 (remove_stat)")
	assert.ErrorIs(t, err, ErrUnknownStat)

	_, err = Sequence([]ir.ActionSpec{{Op: ir.OpSetBase, Stat: "str"}, {Op: "nope"}})
	assert.ErrorContains(t, err, "action 1: invalid nope action")
}

func TestApply(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, Apply(c,
		ir.ActionSpec{Op: ir.OpAddStat, Stat: "luck", Value: 3},
		ir.ActionSpec{Op: ir.OpAddModifier, Stat: "luck", Kind: ir.ModFactor, Value: 2},
	))
	assert.Equal(t, 6.0, c.ValueOr("luck", -1))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		spec     ir.ActionSpec
		expected string
	}{
		{ir.ActionSpec{Op: ir.OpSetBase, Stat: "str", Value: 12}, "set_base str = 12"},
		{ir.ActionSpec{Op: ir.OpAddModifier, Stat: "str", Kind: ir.ModPercent, Value: 12.5, Label: "buff", Source: "aura"}, "add_modifier str percent(12.5)[buff] from aura"},
		{ir.ActionSpec{Op: ir.OpRemoveSource, Source: "aura"}, "remove_source from aura"},
		{ir.ActionSpec{Op: ir.OpRemoveStat, Stat: "luck"}, "remove_stat luck"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Describe(tt.spec))
	}
}
