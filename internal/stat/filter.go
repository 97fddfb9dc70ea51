package stat

// Filter selects the modifiers a pipeline stage folds.
type Filter[N Number] interface {
	Matches(m Modifier[N]) bool
	Copy() Filter[N]
}

// With returns a filter matching only modifiers both current and next match.
// Nested AND filters are flattened so a match call walks a single list.
func With[N Number](current, next Filter[N]) Filter[N] {
	var parts []Filter[N]
	for _, f := range []Filter[N]{current, next} {
		switch f := f.(type) {
		case nil:
		case *andFilter[N]:
			parts = append(parts, f.parts...)
		default:
			parts = append(parts, f)
		}
	}
	return &andFilter[N]{parts: parts}
}

// WithType narrows f to modifiers whose dynamic type is M.
func WithType[N Number, M Modifier[N]](f Filter[N]) Filter[N] {
	return With(f, TypeFilter[N, M]())
}

// WithCondition narrows f with a predicate.
func WithCondition[N Number](f Filter[N], fn func(Modifier[N]) bool) Filter[N] {
	return With(f, FilterFunc(fn))
}

type andFilter[N Number] struct {
	parts []Filter[N]
}

// Matches is true for an empty conjunction.
func (f *andFilter[N]) Matches(m Modifier[N]) bool {
	for _, p := range f.parts {
		if !p.Matches(m) {
			return false
		}
	}
	return true
}

func (f *andFilter[N]) Copy() Filter[N] {
	parts := make([]Filter[N], len(f.parts))
	for i, p := range f.parts {
		parts[i] = p.Copy()
	}
	return &andFilter[N]{parts: parts}
}

// None returns a filter that matches nothing.
func None[N Number]() Filter[N] { return noneFilter[N]{} }

type noneFilter[N Number] struct{}

func (noneFilter[N]) Matches(Modifier[N]) bool { return false }
func (f noneFilter[N]) Copy() Filter[N]        { return f }

// Any returns a filter that matches every modifier.
func Any[N Number]() Filter[N] { return FilterFunc(func(Modifier[N]) bool { return true }) }

// FilterFunc adapts a predicate into a Filter.
func FilterFunc[N Number](fn func(Modifier[N]) bool) Filter[N] {
	return &funcFilter[N]{fn: fn}
}

type funcFilter[N Number] struct {
	fn func(Modifier[N]) bool
}

func (f *funcFilter[N]) Matches(m Modifier[N]) bool { return f.fn(m) }
func (f *funcFilter[N]) Copy() Filter[N]            { return &funcFilter[N]{fn: f.fn} }

// TypeFilter matches modifiers whose dynamic type is M.
func TypeFilter[N Number, M Modifier[N]]() Filter[N] { return typeFilter[N, M]{} }

type typeFilter[N Number, M Modifier[N]] struct{}

func (typeFilter[N, M]) Matches(m Modifier[N]) bool {
	_, ok := m.(M)
	return ok
}

func (f typeFilter[N, M]) Copy() Filter[N] { return f }

// LabelFilter matches labeled modifiers carrying label.
func LabelFilter[N Number](label string) Filter[N] { return labelFilter[N]{label: label} }

type labelFilter[N Number] struct {
	label string
}

func (f labelFilter[N]) Matches(m Modifier[N]) bool {
	l, ok := m.(Labeled)
	return ok && l.ModifierLabel() == f.label
}

func (f labelFilter[N]) Copy() Filter[N] { return f }
