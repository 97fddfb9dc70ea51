package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/statsim/internal/ir"
)

// TraceSnapshot is the golden-file view of a run.
type TraceSnapshot struct {
	Scenario string
	Trace    []TraceEvent
	Final    ir.StatSnapshot
}

// ToIR renders the snapshot for canonical encoding.
func (s TraceSnapshot) ToIR() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, e := range s.Trace {
		trace[i] = e.ToIR()
	}
	return ir.IRObject{
		"scenario": ir.IRString(s.Scenario),
		"trace":    trace,
		"final":    s.Final.ToIR(),
	}
}

// GoldenBytes returns the canonical JSON a golden file holds for result.
func GoldenBytes(name string, result *Result) ([]byte, error) {
	snap := TraceSnapshot{Scenario: name, Trace: result.Trace, Final: result.Final}
	return ir.MarshalCanonical(snap.ToIR())
}

// RunWithGolden runs scenario and compares its trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
