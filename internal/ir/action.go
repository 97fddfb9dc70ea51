package ir

import "fmt"

// Action ops.
const (
	OpSetBase        = "set_base"
	OpAddModifier    = "add_modifier"
	OpRemoveModifier = "remove_modifier"
	OpRemoveSource   = "remove_source"
	OpClearModifiers = "clear_modifiers"
	OpAddStat        = "add_stat"
	OpRemoveStat     = "remove_stat"
)

// ValidOps lists the accepted action ops.
var ValidOps = map[string]bool{
	OpSetBase:        true,
	OpAddModifier:    true,
	OpRemoveModifier: true,
	OpRemoveSource:   true,
	OpClearModifiers: true,
	OpAddStat:        true,
	OpRemoveStat:     true,
}

// ActionSpec is a serializable container mutation. Scenario files, action
// files and the session journal all carry this shape.
type ActionSpec struct {
	Op     string  `json:"op" yaml:"op"`
	Stat   string  `json:"stat,omitempty" yaml:"stat,omitempty"`
	Kind   string  `json:"kind,omitempty" yaml:"kind,omitempty"`
	Value  float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Source string  `json:"source,omitempty" yaml:"source,omitempty"`
	Label  string  `json:"label,omitempty" yaml:"label,omitempty"`
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the action against the op's required fields.
// Returns all errors (not fail-fast).
func (a ActionSpec) Validate() []ValidationError {
	var errs []ValidationError
	if !ValidOps[a.Op] {
		return append(errs, ValidationError{
			Field:   "op",
			Message: fmt.Sprintf("unknown op %q", a.Op),
		})
	}

	needsStat := a.Op != OpRemoveSource
	if needsStat && a.Stat == "" {
		errs = append(errs, ValidationError{Field: "stat", Message: "stat is required"})
	}

	switch a.Op {
	case OpAddModifier, OpRemoveModifier:
		if !ValidModifierKinds[a.Kind] {
			errs = append(errs, ValidationError{
				Field:   "kind",
				Message: fmt.Sprintf("invalid modifier kind %q, must be one of: flat, percent, factor, override", a.Kind),
			})
		}
	case OpRemoveSource:
		if a.Source == "" {
			errs = append(errs, ValidationError{Field: "source", Message: "source is required"})
		}
	}
	return errs
}

// ToIR renders the action for canonical encoding.
func (a ActionSpec) ToIR() IRObject {
	obj := IRObject{"op": IRString(a.Op)}
	if a.Stat != "" {
		obj["stat"] = IRString(a.Stat)
	}
	if a.Kind != "" {
		obj["kind"] = IRString(a.Kind)
	}
	switch a.Op {
	case OpSetBase, OpAddModifier, OpRemoveModifier, OpAddStat:
		obj["value"] = Num(a.Value)
	}
	if a.Source != "" {
		obj["source"] = IRString(a.Source)
	}
	if a.Label != "" {
		obj["label"] = IRString(a.Label)
	}
	return obj
}
