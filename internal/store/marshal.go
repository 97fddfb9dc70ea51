package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/statsim/internal/ir"
)

// marshalAction converts an action to canonical JSON TEXT for storage.
func marshalAction(a ir.ActionSpec) (string, error) {
	data, err := ir.MarshalCanonical(a.ToIR())
	if err != nil {
		return "", fmt.Errorf("marshal action: %w", err)
	}
	return string(data), nil
}

// actionRow mirrors ActionSpec.ToIR; numbers are canonical text.
type actionRow struct {
	Op     string `json:"op"`
	Stat   string `json:"stat"`
	Kind   string `json:"kind"`
	Value  string `json:"value"`
	Source string `json:"source"`
	Label  string `json:"label"`
}

// unmarshalAction parses canonical JSON TEXT back to an action.
func unmarshalAction(data string) (ir.ActionSpec, error) {
	var row actionRow
	if err := json.Unmarshal([]byte(data), &row); err != nil {
		return ir.ActionSpec{}, fmt.Errorf("unmarshal action: %w", err)
	}
	a := ir.ActionSpec{
		Op:     row.Op,
		Stat:   row.Stat,
		Kind:   row.Kind,
		Source: row.Source,
		Label:  row.Label,
	}
	if row.Value != "" {
		v, err := strconv.ParseFloat(row.Value, 64)
		if err != nil {
			return ir.ActionSpec{}, fmt.Errorf("unmarshal action value: %w", err)
		}
		a.Value = v
	}
	return a, nil
}

// numberText encodes an optional diff side; nil maps to NULL.
func numberText(v *float64) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: ir.FormatNumber(*v), Valid: true}
}

// parseNumberText decodes a diff side written by numberText.
func parseNumberText(s sql.NullString) (*float64, error) {
	if !s.Valid {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s.String, 64)
	if err != nil {
		return nil, fmt.Errorf("parse diff value %q: %w", s.String, err)
	}
	return &v, nil
}
