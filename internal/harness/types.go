package harness

import "github.com/roach88/statsim/internal/ir"

// Trace event types.
const (
	EventSetup    = "setup"
	EventSimulate = "simulate"
	EventApply    = "apply"
	EventConfirm  = "confirm"
	EventCancel   = "cancel"
)

// TraceEvent records one thing a scenario did to the manager.
type TraceEvent struct {
	Step    int             `json:"step"` // 0 for setup, steps count from 1
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Seq     int64           `json:"seq,omitempty"` // Set once a session closes
	Actions []ir.ActionSpec `json:"actions,omitempty"`
	Diffs   []ir.DiffRecord `json:"diffs,omitempty"`
	Error   string          `json:"error,omitempty"` // Expected simulate failure
}

// ToIR renders the event for canonical encoding.
func (e TraceEvent) ToIR() ir.IRObject {
	obj := ir.IRObject{
		"step":    ir.IRInt(e.Step),
		"type":    ir.IRString(e.Type),
		"session": ir.IRString(e.Session),
	}
	if e.Seq != 0 {
		obj["seq"] = ir.IRInt(e.Seq)
	}
	if len(e.Actions) > 0 {
		actions := make(ir.IRArray, len(e.Actions))
		for i, a := range e.Actions {
			actions[i] = a.ToIR()
		}
		obj["actions"] = actions
	}
	if len(e.Diffs) > 0 {
		diffs := make(ir.IRArray, len(e.Diffs))
		for i, d := range e.Diffs {
			diffs[i] = d.ToIR()
		}
		obj["diffs"] = diffs
	}
	if e.Error != "" {
		obj["error"] = ir.IRString(e.Error)
	}
	return obj
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when no expectation failed.
	Pass bool `json:"pass"`

	// Trace lists setup, simulations and session closes in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Final is the live state after the last step.
	Final ir.StatSnapshot `json:"final"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
