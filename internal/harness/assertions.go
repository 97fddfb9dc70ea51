package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/statsim/internal/ir"
)

// Tolerance is the largest difference at which two stat values still
// match.
const Tolerance = 1e-9

// Assertion types.
const (
	AssertDiffs   = "diffs"
	AssertValue   = "value"
	AssertError   = "error"
	AssertSession = "session"
	AssertReplay  = "replay"
)

// AssertionError is a failed expectation.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Where    string // "step 2", "final" and so on
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: %s assertion failed\n", e.Where, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// ValuesMatch reports whether a and b agree within Tolerance. Equal
// infinities match; NaN never does.
func ValuesMatch(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= Tolerance
}

// assertDiffs checks got against want stat for stat. Order is ignored but
// every stat must appear on both sides, with the same sides present.
func assertDiffs(where string, got, want []ir.DiffRecord) error {
	byStat := make(map[string]ir.DiffRecord, len(got))
	for _, d := range got {
		byStat[d.Stat] = d
	}

	var problems []string
	seen := make(map[string]bool, len(want))
	for _, w := range want {
		seen[w.Stat] = true
		g, ok := byStat[w.Stat]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: missing, want %s", w.Stat, formatDiff(w)))
			continue
		}
		if !sideMatches(g.Before, w.Before) || !sideMatches(g.After, w.After) {
			problems = append(problems, fmt.Sprintf("%s: got %s, want %s", w.Stat, formatDiff(g), formatDiff(w)))
		}
	}
	for _, g := range got {
		if !seen[g.Stat] {
			problems = append(problems, fmt.Sprintf("%s: unexpected %s", g.Stat, formatDiff(g)))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertDiffs,
		Where:    where,
		Expected: formatDiffs(want),
		Actual:   formatDiffs(got) + "\n  " + strings.Join(problems, "\n  "),
	}
}

func sideMatches(got, want *float64) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	return ValuesMatch(*got, *want)
}

// assertValues checks each wanted stat against lookup, in stat order so
// failures read the same on every run.
func assertValues(where string, lookup func(string) (float64, bool), want map[string]float64) []error {
	var errs []error
	for _, id := range sortedKeys(want) {
		w := want[id]
		got, ok := lookup(id)
		switch {
		case !ok:
			errs = append(errs, &AssertionError{
				Type:     AssertValue,
				Where:    where,
				Expected: fmt.Sprintf("%s = %s", id, ir.FormatNumber(w)),
				Actual:   fmt.Sprintf("%s not present", id),
			})
		case !ValuesMatch(got, w):
			errs = append(errs, &AssertionError{
				Type:     AssertValue,
				Where:    where,
				Expected: fmt.Sprintf("%s = %s", id, ir.FormatNumber(w)),
				Actual:   fmt.Sprintf("%s = %s", id, ir.FormatNumber(got)),
			})
		}
	}
	return errs
}

// assertSimulateError checks that err happened and mentions want.
func assertSimulateError(where string, err error, want string) error {
	if err == nil {
		return &AssertionError{
			Type:     AssertError,
			Where:    where,
			Expected: fmt.Sprintf("simulate error containing %q", want),
			Actual:   "simulate succeeded",
		}
	}
	if !strings.Contains(err.Error(), want) {
		return &AssertionError{
			Type:     AssertError,
			Where:    where,
			Expected: fmt.Sprintf("simulate error containing %q", want),
			Actual:   err.Error(),
		}
	}
	return nil
}

func formatDiff(d ir.DiffRecord) string {
	side := func(v *float64) string {
		if v == nil {
			return "absent"
		}
		return ir.FormatNumber(*v)
	}
	return side(d.Before) + " -> " + side(d.After)
}

func formatDiffs(ds []ir.DiffRecord) string {
	if len(ds) == 0 {
		return "no changes"
	}
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.Stat + " " + formatDiff(d)
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
