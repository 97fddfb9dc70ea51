package stat

// PassProcessor folds a value through the modifiers its filter selects.
type PassProcessor[N Number] interface {
	// Filter reports which modifiers the processor is eligible for.
	Filter() Filter[N]
	// Process folds value through mods. mods is the full candidate list;
	// the processor selects its own eligible subset.
	Process(value N, mods []Modifier[N]) N
	Copy() PassProcessor[N]
}

// Fold combines a running value with the modifiers selected for a stage.
// Folds must not retain mods.
type Fold[N Number] func(value N, mods []Modifier[N]) N

// Pass is a single pipeline stage pairing a filter with a fold.
type Pass[N Number] struct {
	name   string
	filter Filter[N]
	fold   Fold[N]
}

// NewPass creates a stage. A nil filter selects every modifier.
func NewPass[N Number](name string, filter Filter[N], fold Fold[N]) *Pass[N] {
	if filter == nil {
		filter = Any[N]()
	}
	return &Pass[N]{name: name, filter: filter, fold: fold}
}

// Name returns the stage name used in logs and sheet output.
func (p *Pass[N]) Name() string { return p.name }

func (p *Pass[N]) Filter() Filter[N] { return p.filter }

func (p *Pass[N]) Process(value N, mods []Modifier[N]) N {
	return p.fold(value, selectModifiers(p.filter, mods, nil))
}

func (p *Pass[N]) Copy() PassProcessor[N] {
	return &Pass[N]{name: p.name, filter: p.filter.Copy(), fold: p.fold}
}

func selectModifiers[N Number](f Filter[N], mods, buf []Modifier[N]) []Modifier[N] {
	buf = buf[:0]
	for _, m := range mods {
		if f.Matches(m) {
			buf = append(buf, m)
		}
	}
	return buf
}

// SumFold adds every modifier value to the running value.
func SumFold[N Number](value N, mods []Modifier[N]) N {
	for _, m := range mods {
		value += m.Value()
	}
	return value
}

// PercentFold adds the summed percentage points of the running value.
func PercentFold[N Number](value N, mods []Modifier[N]) N {
	if len(mods) == 0 {
		return value
	}
	var points N
	for _, m := range mods {
		points += m.Value()
	}
	return value + value*points/100
}

// FactorFold multiplies the running value by every modifier value.
func FactorFold[N Number](value N, mods []Modifier[N]) N {
	for _, m := range mods {
		value *= m.Value()
	}
	return value
}

// OverrideFold replaces the running value with the last modifier's value.
func OverrideFold[N Number](value N, mods []Modifier[N]) N {
	if len(mods) == 0 {
		return value
	}
	return mods[len(mods)-1].Value()
}

// Pipeline runs stages in declaration order. Each stage re-filters the full
// modifier list it is given, so one stage rejecting a modifier never hides it
// from a later stage.
type Pipeline[N Number] struct {
	stages []PassProcessor[N]
	filter Filter[N]
}

// NewPipeline creates a pipeline from stages in the order given.
func NewPipeline[N Number](stages ...PassProcessor[N]) *Pipeline[N] {
	p := &Pipeline[N]{stages: make([]PassProcessor[N], 0, len(stages))}
	for _, s := range stages {
		if s != nil {
			p.stages = append(p.stages, s)
		}
	}
	p.filter = combinedFilter(p.stages)
	return p
}

// DefaultPipeline folds flat, percent, factor and override modifiers, in
// that order.
func DefaultPipeline[N Number]() *Pipeline[N] {
	return NewPipeline(
		NewPass("flat", TypeFilter[N, Flat[N]](), SumFold[N]),
		NewPass("percent", TypeFilter[N, Percent[N]](), PercentFold[N]),
		NewPass("factor", TypeFilter[N, Factor[N]](), FactorFold[N]),
		NewPass("override", TypeFilter[N, Override[N]](), OverrideFold[N]),
	)
}

func combinedFilter[N Number](stages []PassProcessor[N]) Filter[N] {
	switch len(stages) {
	case 0:
		return Any[N]()
	case 1:
		return stages[0].Filter()
	}
	f := stages[0].Filter()
	for _, s := range stages[1:] {
		f = With(f, s.Filter())
	}
	return f
}

// Filter returns the AND of every stage filter, or Any for an empty
// pipeline. It describes overall eligibility and is not consulted by Process.
func (p *Pipeline[N]) Filter() Filter[N] { return p.filter }

// Stages returns the stages in declaration order.
func (p *Pipeline[N]) Stages() []PassProcessor[N] {
	out := make([]PassProcessor[N], len(p.stages))
	copy(out, p.stages)
	return out
}

// Len returns the number of stages.
func (p *Pipeline[N]) Len() int { return len(p.stages) }

// Process is re-entrant: a fold may read other stats of the container
// sharing this pipeline.
func (p *Pipeline[N]) Process(value N, mods []Modifier[N]) N {
	var selected []Modifier[N]
	for _, s := range p.stages {
		if pass, ok := s.(*Pass[N]); ok {
			selected = selectModifiers(pass.filter, mods, selected)
			value = pass.fold(value, selected)
			continue
		}
		value = s.Process(value, mods)
	}
	return value
}

func (p *Pipeline[N]) Copy() PassProcessor[N] {
	stages := make([]PassProcessor[N], len(p.stages))
	for i, s := range p.stages {
		stages[i] = s.Copy()
	}
	return NewPipeline(stages...)
}
