package stat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolds(t *testing.T) {
	mods := []Modifier[float64]{Flat[float64]{Amount: 2}, Flat[float64]{Amount: 3}}

	assert.Equal(t, 15.0, SumFold(10, mods))
	assert.Equal(t, 15.0, PercentFold(10, []Modifier[float64]{Percent[float64]{Amount: 50}}))
	assert.Equal(t, 60.0, FactorFold(10, mods))
	assert.Equal(t, 3.0, OverrideFold(10, mods))

	assert.Equal(t, 10.0, SumFold[float64](10, nil))
	assert.Equal(t, 10.0, PercentFold[float64](10, nil))
	assert.Equal(t, 10.0, FactorFold[float64](10, nil))
	assert.Equal(t, 10.0, OverrideFold[float64](10, nil))
}

func TestPercentFold_SumsPointsBeforeApplying(t *testing.T) {
	mods := []Modifier[int]{Percent[int]{Amount: 10}, Percent[int]{Amount: 15}}
	assert.Equal(t, 125, PercentFold(100, mods))
}

func TestPipeline_StagesRefilterFullSet(t *testing.T) {
	var seen [][]int
	capture := func(value int, mods []Modifier[int]) int {
		vals := make([]int, len(mods))
		for i, m := range mods {
			vals[i] = m.Value()
		}
		seen = append(seen, vals)
		return value
	}

	p := NewPipeline[int](
		NewPass("small", FilterFunc(func(m Modifier[int]) bool { return m.Value() < 5 }), capture),
		NewPass("odd", FilterFunc(func(m Modifier[int]) bool { return m.Value()%2 == 1 }), capture),
	)
	p.Process(0, []Modifier[int]{Flat[int]{Amount: 1}, Flat[int]{Amount: 4}, Flat[int]{Amount: 7}})

	assert.Equal(t, [][]int{{1, 4}, {1, 7}}, seen)
}

func TestPipeline_DeclarationOrder(t *testing.T) {
	mods := []Modifier[int]{
		Factor[int]{Amount: 2},
		Flat[int]{Amount: 10},
		Percent[int]{Amount: 50},
	}

	assert.Equal(t, 60, DefaultPipeline[int]().Process(10, mods), "(10+10)*1.5*2")

	reversed := NewPipeline[int](
		NewPass("factor", TypeFilter[int, Factor[int]](), FactorFold[int]),
		NewPass("flat", TypeFilter[int, Flat[int]](), SumFold[int]),
	)
	assert.Equal(t, 30, reversed.Process(10, mods))
}

func TestPipeline_OverrideWinsLast(t *testing.T) {
	mods := []Modifier[int]{
		Override[int]{Amount: 1},
		Flat[int]{Amount: 5},
		Override[int]{Amount: 42},
	}
	assert.Equal(t, 42, DefaultPipeline[int]().Process(10, mods))
}

func TestPipeline_FilterIsConjunction(t *testing.T) {
	p := NewPipeline[int](
		NewPass("labeled", LabelFilter[int]("gear"), SumFold[int]),
		NewPass("flat", TypeFilter[int, Flat[int]](), SumFold[int]),
	)

	assert.True(t, p.Filter().Matches(Flat[int]{Amount: 1, Label: "gear"}))
	assert.False(t, p.Filter().Matches(Flat[int]{Amount: 1}))
	assert.False(t, p.Filter().Matches(Factor[int]{Amount: 1, Label: "gear"}))

	// The combined filter does not gate stages.
	assert.Equal(t, 11, p.Process(10, []Modifier[int]{Flat[int]{Amount: 1}}))
}

func TestPipeline_EmptyAndSingle(t *testing.T) {
	empty := NewPipeline[int]()
	assert.Equal(t, 0, empty.Len())
	assert.True(t, empty.Filter().Matches(Flat[int]{Amount: 1}))
	assert.True(t, empty.Filter().Matches(Override[int]{Amount: 1}))
	assert.Equal(t, 10, empty.Process(10, []Modifier[int]{Flat[int]{Amount: 1}}))

	label := LabelFilter[int]("x")
	single := NewPipeline[int](NewPass("x", label, SumFold[int]))
	assert.Equal(t, label, single.Filter())
}

func TestPipeline_NestedPipelineStage(t *testing.T) {
	inner := NewPipeline[int](NewPass("flat", TypeFilter[int, Flat[int]](), SumFold[int]))
	outer := NewPipeline[int](inner, NewPass("factor", TypeFilter[int, Factor[int]](), FactorFold[int]))

	mods := []Modifier[int]{Flat[int]{Amount: 2}, Factor[int]{Amount: 3}}
	assert.Equal(t, 36, outer.Process(10, mods))
}

func TestPipeline_CopyIsIndependent(t *testing.T) {
	p := DefaultPipeline[int]()
	cp, ok := p.Copy().(*Pipeline[int])
	require.True(t, ok)

	p.stages[0] = NewPass("none", None[int](), SumFold[int])

	mods := []Modifier[int]{Flat[int]{Amount: 5}}
	assert.Equal(t, 10, p.Process(10, mods))
	assert.Equal(t, 15, cp.Process(10, mods))
	assert.Equal(t, 4, cp.Len())
}

func TestNewPass_NilFilterSelectsAll(t *testing.T) {
	p := NewPass[int]("all", nil, SumFold[int])

	assert.Equal(t, "all", p.Name())
	assert.Equal(t, 13, p.Process(10, []Modifier[int]{Flat[int]{Amount: 1}, Factor[int]{Amount: 2}}))
}

func TestPipeline_FoldMayReadSharedContainer(t *testing.T) {
	var c *Container[string, int]
	scaled := func(value int, mods []Modifier[int]) int {
		for _, m := range mods {
			if f, ok := m.(Flat[int]); ok && f.Label == "armor" {
				value += c.ValueOr("armor", 0)
			}
		}
		return SumFold(value, mods)
	}
	c = New[string](NewPipeline[int](
		NewPass("flat", TypeFilter[int, Flat[int]](), scaled),
		NewPass("factor", TypeFilter[int, Factor[int]](), FactorFold[int]),
	))

	_, err := AddPrimaryStat(c, "armor", 3)
	require.NoError(t, err)
	c.AddStatModifier("armor", Flat[int]{Amount: 4}, nil)
	c.AddStatModifier("armor", Factor[int]{Amount: 2}, nil)

	_, err = AddPrimaryStat(c, "str", 10)
	require.NoError(t, err)
	c.AddStatModifier("str", Flat[int]{Amount: 1, Label: "armor"}, nil)
	c.AddStatModifier("str", Flat[int]{Amount: 2}, nil)

	// armor is still dirty, so reading str computes armor mid-fold.
	assert.Equal(t, 10+14+1+2, c.ValueOr("str", 0))
	assert.Equal(t, 14, c.ValueOr("armor", 0))
}
