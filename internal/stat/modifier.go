package stat

import "fmt"

// Modifier contributes to a stat's value during pipeline processing.
//
// Modifiers are located for removal by equality. A modifier that implements
// Equaler decides equality itself; otherwise the interface values are
// compared with ==, so the dynamic type must be comparable.
type Modifier[N Number] interface {
	Value() N
	Copy() Modifier[N]
}

// Equaler is implemented by modifiers with custom equality.
type Equaler[N Number] interface {
	Equal(other Modifier[N]) bool
}

// ModifiersEqual reports whether two modifiers are equal.
func ModifiersEqual[N Number](a, b Modifier[N]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if e, ok := a.(Equaler[N]); ok {
		return e.Equal(b)
	}
	return a == b
}

// Labeled is implemented by modifiers that carry a label.
type Labeled interface {
	ModifierLabel() string
}

// Flat adds Amount to the running value.
type Flat[N Number] struct {
	Amount N
	Label  string
}

func (m Flat[N]) Value() N              { return m.Amount }
func (m Flat[N]) Copy() Modifier[N]     { return m }
func (m Flat[N]) ModifierLabel() string { return m.Label }
func (m Flat[N]) String() string        { return fmt.Sprintf("flat(%v)", m.Amount) }

// Percent adds Amount percentage points of the running value.
type Percent[N Number] struct {
	Amount N
	Label  string
}

func (m Percent[N]) Value() N              { return m.Amount }
func (m Percent[N]) Copy() Modifier[N]     { return m }
func (m Percent[N]) ModifierLabel() string { return m.Label }
func (m Percent[N]) String() string        { return fmt.Sprintf("percent(%v)", m.Amount) }

// Factor multiplies the running value by Amount.
type Factor[N Number] struct {
	Amount N
	Label  string
}

func (m Factor[N]) Value() N              { return m.Amount }
func (m Factor[N]) Copy() Modifier[N]     { return m }
func (m Factor[N]) ModifierLabel() string { return m.Label }
func (m Factor[N]) String() string        { return fmt.Sprintf("factor(%v)", m.Amount) }

// Override replaces the running value with Amount.
type Override[N Number] struct {
	Amount N
	Label  string
}

func (m Override[N]) Value() N              { return m.Amount }
func (m Override[N]) Copy() Modifier[N]     { return m }
func (m Override[N]) ModifierLabel() string { return m.Label }
func (m Override[N]) String() string        { return fmt.Sprintf("override(%v)", m.Amount) }

func copyModifiers[N Number](mods []Modifier[N]) []Modifier[N] {
	if len(mods) == 0 {
		return nil
	}
	out := make([]Modifier[N], len(mods))
	for i, m := range mods {
		out[i] = m.Copy()
	}
	return out
}

func countModifiers[N Number](mods []Modifier[N], m Modifier[N]) int {
	n := 0
	for _, candidate := range mods {
		if ModifiersEqual(candidate, m) {
			n++
		}
	}
	return n
}

func indexOfModifier[N Number](mods []Modifier[N], m Modifier[N]) int {
	for i, candidate := range mods {
		if ModifiersEqual(candidate, m) {
			return i
		}
	}
	return -1
}
