package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/session"
	"github.com/roach88/statsim/internal/sheet"
	"github.com/roach88/statsim/internal/store"
	"github.com/roach88/statsim/internal/testutil"
)

// Harness runs one scenario against a session manager journaled to an
// in-memory store.
type Harness struct {
	spec    *ir.SheetSpec
	store   *store.Store
	manager *session.Manager
	logger  *slog.Logger
	result  *Result
}

// Run executes a scenario and returns its result. Failed expectations are
// reported in the result; the error is reserved for scenarios that cannot
// run at all, such as a sheet that does not compile.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, nil)
}

// RunContext is Run with a context and logger. A nil logger discards.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	spec, err := sheet.LoadSpec(scenario.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to load sheet: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	m, err := session.NewManager(ctx, spec,
		session.WithStore(st),
		session.WithClock(testutil.NewDeterministicClock()),
		session.WithIDGenerator(testutil.NewSequentialIDGenerator("session")),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	h := &Harness{spec: spec, store: st, manager: m, logger: logger, result: NewResult()}
	if err := h.run(ctx, scenario); err != nil {
		return nil, err
	}
	return h.result, nil
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) error {
	if len(scenario.Setup) > 0 {
		if err := h.oneShot(ctx, 0, EventSetup, scenario.Setup); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}

	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i+1, step); err != nil {
			// Later steps would run against a state the scenario did not
			// intend, so stop here.
			h.result.AddError(fmt.Sprintf("step %d: %v", i+1, err))
			break
		}
	}

	if id, open := h.manager.Active(); open {
		h.result.AddError((&AssertionError{
			Type:     AssertSession,
			Where:    "final",
			Expected: "no open session",
			Actual:   fmt.Sprintf("session %s left open", id),
		}).Error())
		if _, err := h.manager.Cancel(ctx); err != nil {
			return fmt.Errorf("cancel open session: %w", err)
		}
	}

	h.expectValues("final", h.manager.Container().ValueOf, scenario.Expect)
	if err := h.verifyReplay(ctx); err != nil {
		return err
	}
	h.result.Final = h.manager.Snapshot()
	return nil
}

func (h *Harness) runStep(ctx context.Context, n int, step Step) error {
	where := fmt.Sprintf("step %d", n)

	if len(step.Apply) > 0 {
		if err := h.oneShot(ctx, n, EventApply, step.Apply); err != nil {
			return err
		}
	}

	if len(step.Simulate) > 0 {
		if _, open := h.manager.Active(); !open {
			if _, err := h.manager.Begin(); err != nil {
				return err
			}
		}
		id, _ := h.manager.Active()

		diffs, err := h.manager.Simulate(step.Simulate...)
		if step.ExpectError != "" {
			if aerr := assertSimulateError(where, err, step.ExpectError); aerr != nil {
				h.result.AddError(aerr.Error())
			}
		} else if err != nil {
			return err
		}

		ev := TraceEvent{Step: n, Type: EventSimulate, Session: id, Actions: step.Simulate}
		if err != nil {
			ev.Error = step.ExpectError
		} else {
			ev.Diffs = diffs
		}
		h.result.addTrace(ev)

		if err == nil && step.ExpectDiffs != nil {
			if aerr := assertDiffs(where, diffs, step.ExpectDiffs); aerr != nil {
				h.result.AddError(aerr.Error())
			}
		}
	}

	h.expectValues(where+" preview", h.manager.Preview, step.Preview)

	switch {
	case step.Confirm:
		rec, err := h.manager.Confirm(ctx)
		if err != nil {
			return err
		}
		h.traceClose(n, EventConfirm, rec)
	case step.Cancel:
		rec, err := h.manager.Cancel(ctx)
		if err != nil {
			return err
		}
		h.traceClose(n, EventCancel, rec)
	}

	h.expectValues(where, h.manager.Container().ValueOf, step.Expect)
	h.logger.Debug("scenario step completed", "step", n, "errors", len(h.result.Errors))
	return nil
}

// oneShot runs actions as a session of their own and confirms it.
func (h *Harness) oneShot(ctx context.Context, n int, kind string, actions []ir.ActionSpec) error {
	if _, err := h.manager.Begin(); err != nil {
		return err
	}
	if _, err := h.manager.Simulate(actions...); err != nil {
		if _, cerr := h.manager.Cancel(ctx); cerr != nil {
			return fmt.Errorf("%w (cancel: %v)", err, cerr)
		}
		return err
	}
	rec, err := h.manager.Confirm(ctx)
	if err != nil {
		return err
	}
	h.result.addTrace(TraceEvent{
		Step: n, Type: kind, Session: rec.ID, Seq: rec.Seq,
		Actions: actions, Diffs: rec.Diffs,
	})
	return nil
}

func (h *Harness) traceClose(n int, kind string, rec ir.SessionRecord) {
	h.result.addTrace(TraceEvent{
		Step: n, Type: kind, Session: rec.ID, Seq: rec.Seq, Diffs: rec.Diffs,
	})
}

func (h *Harness) expectValues(where string, lookup func(string) (float64, bool), want map[string]float64) {
	for _, err := range assertValues(where, lookup, want) {
		h.result.AddError(err.Error())
	}
}

// verifyReplay rebuilds the state from the journal and requires it to
// reproduce every recorded digest and the live state.
func (h *Harness) verifyReplay(ctx context.Context) error {
	res, err := session.Replay(ctx, h.spec, h.store, h.logger)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	for _, mm := range res.Mismatches {
		h.result.AddError((&AssertionError{
			Type:     AssertReplay,
			Where:    fmt.Sprintf("session %s (seq %d)", mm.SessionID, mm.Seq),
			Expected: mm.Expected,
			Actual:   mm.Got,
		}).Error())
	}

	got, err := session.Digest(res.Container)
	if err != nil {
		return err
	}
	want, err := h.manager.Digest()
	if err != nil {
		return err
	}
	if got != want {
		h.result.AddError((&AssertionError{
			Type:     AssertReplay,
			Where:    "final",
			Expected: want,
			Actual:   got,
		}).Error())
	}
	return nil
}
