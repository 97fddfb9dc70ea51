package harness

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statsim/internal/ir"
)

func f64(v float64) *float64 { return &v }

func TestValuesMatch(t *testing.T) {
	assert.True(t, ValuesMatch(0.1+0.2, 0.3))
	assert.True(t, ValuesMatch(math.Inf(1), math.Inf(1)))
	assert.False(t, ValuesMatch(1, 1.000001))
	assert.False(t, ValuesMatch(math.NaN(), math.NaN()))
}

func TestAssertDiffs_Match(t *testing.T) {
	got := []ir.DiffRecord{
		{Stat: "a", Before: f64(1), After: f64(2)},
		{Stat: "b", After: f64(3)},
	}
	want := []ir.DiffRecord{
		{Stat: "b", After: f64(3)},
		{Stat: "a", Before: f64(1), After: f64(2.0000000001)},
	}
	assert.NoError(t, assertDiffs("step 1", got, want))
}

func TestAssertDiffs_Mismatches(t *testing.T) {
	tests := []struct {
		name string
		got  []ir.DiffRecord
		want []ir.DiffRecord
		msg  string
	}{
		{
			name: "missing stat",
			want: []ir.DiffRecord{{Stat: "a", After: f64(1)}},
			msg:  "a: missing, want absent -> 1",
		},
		{
			name: "unexpected stat",
			got:  []ir.DiffRecord{{Stat: "a", Before: f64(1)}},
			msg:  "a: unexpected 1 -> absent",
		},
		{
			name: "side presence differs",
			got:  []ir.DiffRecord{{Stat: "a", Before: f64(1), After: f64(2)}},
			want: []ir.DiffRecord{{Stat: "a", After: f64(2)}},
			msg:  "a: got 1 -> 2, want absent -> 2",
		},
		{
			name: "value differs",
			got:  []ir.DiffRecord{{Stat: "a", Before: f64(1), After: f64(2)}},
			want: []ir.DiffRecord{{Stat: "a", Before: f64(1), After: f64(2.5)}},
			msg:  "a: got 1 -> 2, want 1 -> 2.5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertDiffs("step 3", tt.got, tt.want)
			require.Error(t, err)

			var aerr *AssertionError
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, AssertDiffs, aerr.Type)
			assert.Equal(t, "step 3", aerr.Where)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestAssertValues(t *testing.T) {
	live := map[string]float64{"a": 1, "b": 2}
	lookup := func(id string) (float64, bool) {
		v, ok := live[id]
		return v, ok
	}

	assert.Empty(t, assertValues("final", lookup, map[string]float64{"a": 1, "b": 2}))

	errs := assertValues("final", lookup, map[string]float64{"c": 0, "b": 3, "a": 1})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "b = 3")
	assert.Contains(t, errs[0].Error(), "Actual: b = 2")
	assert.Contains(t, errs[1].Error(), "c not present")
}

func TestAssertSimulateError(t *testing.T) {
	assert.NoError(t, assertSimulateError("step 1", errors.New("simulate: unknown stat"), "unknown stat"))
	assert.ErrorContains(t, assertSimulateError("step 1", nil, "x"), "simulate succeeded")
	assert.ErrorContains(t, assertSimulateError("step 1", errors.New("boom"), "x"), "Actual: boom")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertValue, Where: "step 2", Expected: "hp = 3", Actual: "hp = 4"}
	assert.Equal(t, "step 2: value assertion failed\n  Expected: hp = 3\n  Actual: hp = 4", err.Error())
}
