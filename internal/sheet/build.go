package sheet

import (
	"fmt"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/stat"
)

// Build instantiates a container for a compiled sheet. Stats are added in
// dependency order and the container is initialized before it is returned.
func Build(spec *ir.SheetSpec, opts ...stat.Option) (*stat.Container[string, float64], error) {
	pipeline, err := PipelineFor(spec.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: pipeline: %w", spec.Name, err)
	}
	order, err := BuildOrder(spec)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]ir.StatSpec, len(spec.Stats))
	for _, s := range spec.Stats {
		byID[s.ID] = s
	}

	c := stat.New[string, float64](pipeline, opts...)
	for _, id := range order {
		sv, err := NewStatValue(byID[id])
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", spec.Name, err)
		}
		if err := c.AddStat(id, sv); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", spec.Name, err)
		}
	}
	c.Initialize()
	return c, nil
}

// NewStatValue creates the detached stat value a declaration describes.
func NewStatValue(s ir.StatSpec) (stat.StatValue[string, float64], error) {
	var opts []stat.ValueOption[float64]
	if post := ClampFor(s.Clamp); post != nil {
		opts = append(opts, stat.WithPostProcessor(post))
	}
	if s.Pipeline != nil {
		p, err := PipelineFor(s.Pipeline)
		if err != nil {
			return nil, fmt.Errorf("stat %q: pipeline: %w", s.ID, err)
		}
		opts = append(opts, stat.WithPipeline[float64](p))
	}

	switch s.Kind {
	case ir.KindPrimary:
		return stat.NewPrimary[string](s.Base, opts...), nil
	case ir.KindDerived:
		factory, ok := formulas[s.Formula]
		if !ok {
			return nil, fmt.Errorf("stat %q: unknown formula %q", s.ID, s.Formula)
		}
		return stat.NewCalculated(factory(s), s.Dependencies(), opts...), nil
	default:
		return nil, fmt.Errorf("stat %q: unknown kind %q", s.ID, s.Kind)
	}
}

// ClampFor returns the post-processor enforcing c, or nil when unbounded.
// The lower bound applies first.
func ClampFor(c ir.ClampSpec) stat.PostProcessor[float64] {
	var post stat.PostProcessor[float64]
	if c.Min != nil {
		post = stat.WithMin(post, *c.Min)
	}
	if c.Max != nil {
		post = stat.WithMax(post, *c.Max)
	}
	return post
}

// PipelineFor builds a pipeline from stage specs. A nil list yields the
// default flat, percent, factor, override pipeline; an empty list yields a
// pipeline that ignores every modifier.
func PipelineFor(passes []ir.PassSpec) (*stat.Pipeline[float64], error) {
	if passes == nil {
		return stat.DefaultPipeline[float64](), nil
	}
	stages := make([]stat.PassProcessor[float64], 0, len(passes))
	for i, p := range passes {
		stage, err := stageFor(p)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		stages = append(stages, stage)
	}
	return stat.NewPipeline(stages...), nil
}

func stageFor(p ir.PassSpec) (*stat.Pass[float64], error) {
	var (
		filter stat.Filter[float64]
		fold   stat.Fold[float64]
	)
	switch p.Kind {
	case ir.ModFlat:
		filter, fold = stat.TypeFilter[float64, stat.Flat[float64]](), stat.SumFold[float64]
	case ir.ModPercent:
		filter, fold = stat.TypeFilter[float64, stat.Percent[float64]](), stat.PercentFold[float64]
	case ir.ModFactor:
		filter, fold = stat.TypeFilter[float64, stat.Factor[float64]](), stat.FactorFold[float64]
	case ir.ModOverride:
		filter, fold = stat.TypeFilter[float64, stat.Override[float64]](), stat.OverrideFold[float64]
	default:
		return nil, fmt.Errorf("unknown stage kind %q", p.Kind)
	}

	name := p.Kind
	if p.Label != "" {
		filter = stat.With(filter, stat.LabelFilter[float64](p.Label))
		name += ":" + p.Label
	}
	return stat.NewPass(name, filter, fold), nil
}

// Modifier creates the stat modifier for an action's kind, value and
// label.
func Modifier(kind string, value float64, label string) (stat.Modifier[float64], error) {
	switch kind {
	case ir.ModFlat:
		return stat.Flat[float64]{Amount: value, Label: label}, nil
	case ir.ModPercent:
		return stat.Percent[float64]{Amount: value, Label: label}, nil
	case ir.ModFactor:
		return stat.Factor[float64]{Amount: value, Label: label}, nil
	case ir.ModOverride:
		return stat.Override[float64]{Amount: value, Label: label}, nil
	default:
		return nil, fmt.Errorf("unknown modifier kind %q", kind)
	}
}

// ModifierKind reports the kind name of a modifier created by Modifier.
func ModifierKind(m stat.Modifier[float64]) (string, bool) {
	switch m.(type) {
	case stat.Flat[float64]:
		return ir.ModFlat, true
	case stat.Percent[float64]:
		return ir.ModPercent, true
	case stat.Factor[float64]:
		return ir.ModFactor, true
	case stat.Override[float64]:
		return ir.ModOverride, true
	default:
		return "", false
	}
}
