// Package action compiles serialized container mutations into stat
// actions.
//
// An ir.ActionSpec names one mutation (set a base value, attach or detach
// a modifier, revoke a source, add or remove a stat). Compile validates it
// and returns a stat.Action that applies it to whichever container the
// runner hands in, live or sandbox.
package action

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/sheet"
	"github.com/roach88/statsim/internal/stat"
)

// ErrUnknownStat is returned when an action targets a stat the container
// does not hold.
var ErrUnknownStat = errors.New("unknown stat")

// InvalidError reports an action that failed validation.
type InvalidError struct {
	Action   ir.ActionSpec
	Problems []ir.ValidationError
}

func (e *InvalidError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("invalid %s action: %s", opName(e.Action.Op), strings.Join(msgs, "; "))
}

// IsInvalid reports whether err is a validation failure.
func IsInvalid(err error) bool {
	var ie *InvalidError
	return errors.As(err, &ie)
}

func opName(op string) string {
	if op == "" {
		return "<empty>"
	}
	return op
}

// Validate checks spec and returns an *InvalidError listing every problem.
func Validate(spec ir.ActionSpec) error {
	if problems := spec.Validate(); len(problems) > 0 {
		return &InvalidError{Action: spec, Problems: problems}
	}
	return nil
}

// Compile validates spec and returns the mutation it describes.
func Compile(spec ir.ActionSpec) (stat.Action[string, float64], error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	switch spec.Op {
	case ir.OpSetBase:
		return func(c *stat.Container[string, float64]) error {
			if !c.Has(spec.Stat) {
				return unknownStat(spec)
			}
			return c.SetBaseValue(spec.Stat, spec.Value)
		}, nil

	case ir.OpAddModifier, ir.OpRemoveModifier:
		m, err := sheet.Modifier(spec.Kind, spec.Value, spec.Label)
		if err != nil {
			return nil, err
		}
		source := sourceOf(spec)
		add := spec.Op == ir.OpAddModifier
		return func(c *stat.Container[string, float64]) error {
			if !c.Has(spec.Stat) {
				return unknownStat(spec)
			}
			if add {
				c.AddStatModifier(spec.Stat, m, source)
			} else {
				c.RemoveStatModifier(spec.Stat, m, source)
			}
			return nil
		}, nil

	case ir.OpRemoveSource:
		return func(c *stat.Container[string, float64]) error {
			c.BatchRemoveStatModifiersFromSource(spec.Source)
			return nil
		}, nil

	case ir.OpClearModifiers:
		return func(c *stat.Container[string, float64]) error {
			if !c.Has(spec.Stat) {
				return unknownStat(spec)
			}
			c.RemoveAllModifiers(spec.Stat)
			return nil
		}, nil

	case ir.OpAddStat:
		return func(c *stat.Container[string, float64]) error {
			_, err := stat.AddPrimaryStat(c, spec.Stat, spec.Value)
			return err
		}, nil

	case ir.OpRemoveStat:
		return func(c *stat.Container[string, float64]) error {
			if !c.RemoveStat(spec.Stat) {
				return unknownStat(spec)
			}
			return nil
		}, nil
	}
	// Validate rejects every other op.
	return nil, fmt.Errorf("unhandled op %q", spec.Op)
}

// Sequence compiles specs into one action applying them in order. The
// first failing step stops the sequence.
func Sequence(specs []ir.ActionSpec) (stat.Action[string, float64], error) {
	steps := make([]stat.Action[string, float64], len(specs))
	for i, spec := range specs {
		a, err := Compile(spec)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		steps[i] = a
	}
	return func(c *stat.Container[string, float64]) error {
		for i, step := range steps {
			if err := step(c); err != nil {
				return fmt.Errorf("action %d (%s): %w", i, specs[i].Op, err)
			}
		}
		return nil
	}, nil
}

// Apply runs specs directly against c, outside any simulation.
func Apply(c *stat.Container[string, float64], specs ...ir.ActionSpec) error {
	a, err := Sequence(specs)
	if err != nil {
		return err
	}
	return a(c)
}

// sourceOf maps an empty source to an untracked modifier.
func sourceOf(spec ir.ActionSpec) any {
	if spec.Source == "" {
		return nil
	}
	return spec.Source
}

func unknownStat(spec ir.ActionSpec) error {
	return fmt.Errorf("%s %q: %w", spec.Op, spec.Stat, ErrUnknownStat)
}

// Describe renders spec as a one-line summary for logs and text output.
func Describe(spec ir.ActionSpec) string {
	var b strings.Builder
	b.WriteString(opName(spec.Op))
	if spec.Stat != "" {
		b.WriteString(" ")
		b.WriteString(spec.Stat)
	}
	switch spec.Op {
	case ir.OpAddModifier, ir.OpRemoveModifier:
		fmt.Fprintf(&b, " %s(%s)", spec.Kind, ir.FormatNumber(spec.Value))
		if spec.Label != "" {
			fmt.Fprintf(&b, "[%s]", spec.Label)
		}
	case ir.OpSetBase, ir.OpAddStat:
		fmt.Fprintf(&b, " = %s", ir.FormatNumber(spec.Value))
	}
	if spec.Source != "" {
		fmt.Fprintf(&b, " from %s", spec.Source)
	}
	return b.String()
}
