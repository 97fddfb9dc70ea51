package stat

import (
	"errors"
	"fmt"
)

// Action mutates a container. Actions run against the simulation sandbox
// and are replayed against the live container on confirm, so they must
// depend only on the container they are given.
type Action[K comparable, N Number] func(c *Container[K, N]) error

// Diff records a stat's value on the live container and in the sandbox.
// Either side is absent when the stat does not exist there.
type Diff[K comparable, N Number] struct {
	stat      K
	before    N
	after     N
	hasBefore bool
	hasAfter  bool
}

// NewDiff creates a diff. A nil pointer marks that side absent.
func NewDiff[K comparable, N Number](stat K, before, after *N) Diff[K, N] {
	d := Diff[K, N]{stat: stat}
	if before != nil {
		d.before, d.hasBefore = *before, true
	}
	if after != nil {
		d.after, d.hasAfter = *after, true
	}
	return d
}

// Stat returns the stat the diff describes.
func (d Diff[K, N]) Stat() K { return d.stat }

// Before returns the live value, if the stat exists in the live container.
func (d Diff[K, N]) Before() (N, bool) { return d.before, d.hasBefore }

// After returns the sandbox value, if the stat exists in the sandbox.
func (d Diff[K, N]) After() (N, bool) { return d.after, d.hasAfter }

func (d Diff[K, N]) String() string {
	side := func(v N, ok bool) string {
		if !ok {
			return "<absent>"
		}
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("[%v] %s -> %s", d.stat, side(d.before, d.hasBefore), side(d.after, d.hasAfter))
}

// RunnerState is the simulation lifecycle state.
type RunnerState int

const (
	StateIdle RunnerState = iota
	StateSimulating
)

func (s RunnerState) String() string {
	if s == StateSimulating {
		return "simulating"
	}
	return "idle"
}

// Runner previews mutations on a copy of a container before committing them.
//
// Lifecycle: Idle -> StartUpdate -> Simulating -> ConfirmUpdate | CancelUpdate -> Idle.
// Only one sandbox exists at a time; StartUpdate while simulating fails.
type Runner[K comparable, N Number] struct {
	live    *Container[K, N]
	sandbox *Container[K, N]
	log     []Action[K, N]
	state   RunnerState
}

func newRunner[K comparable, N Number](live *Container[K, N]) *Runner[K, N] {
	return &Runner[K, N]{live: live}
}

// State returns the current lifecycle state.
func (r *Runner[K, N]) State() RunnerState { return r.state }

// Simulating reports whether a sandbox is active.
func (r *Runner[K, N]) Simulating() bool { return r.state == StateSimulating }

// Actions returns the number of logged actions.
func (r *Runner[K, N]) Actions() int { return len(r.log) }

// Sandbox returns the active sandbox, or nil when idle. Mutating it
// directly bypasses the action log and is lost on confirm.
func (r *Runner[K, N]) Sandbox() *Container[K, N] { return r.sandbox }

// StartUpdate snapshots the live container into a fresh sandbox.
func (r *Runner[K, N]) StartUpdate() error {
	if r.state == StateSimulating {
		return newError(CodeInvalidOperation, "StartUpdate", "simulation already in progress")
	}
	r.sandbox = r.live.CreateCopy()
	r.log = r.log[:0]
	r.state = StateSimulating
	r.live.logger.Debug("simulation started", "stats", r.live.Len())
	return nil
}

// RunSimulations applies action to the sandbox, logs it and returns the
// stats whose value differs between the live container and the sandbox.
//
// If action fails, the sandbox is rebuilt from the live container and the
// logged actions, so the failed action leaves no trace, and the error is
// returned.
//
// Diffs list sandbox stats in table order followed by stats that exist only
// in the live container.
func (r *Runner[K, N]) RunSimulations(action Action[K, N]) ([]Diff[K, N], error) {
	if err := r.assertSimulating("RunSimulations"); err != nil {
		return nil, err
	}
	if r.sandbox == nil {
		panic(newError(CodeInvariantViolation, "RunSimulations",
			"sandbox missing while simulating"))
	}

	if err := action(r.sandbox); err != nil {
		r.rebuild()
		return nil, fmt.Errorf("simulated action failed: %w", err)
	}
	r.log = append(r.log, action)

	return r.diff(), nil
}

// ConfirmUpdate replays every logged action, in order, against the live
// container and returns to Idle. Replay errors are collected and returned
// after every action has run.
func (r *Runner[K, N]) ConfirmUpdate() error {
	if err := r.assertSimulating("ConfirmUpdate"); err != nil {
		return err
	}
	log := r.log
	r.reset()

	var errs []error
	for i, action := range log {
		if err := action(r.live); err != nil {
			errs = append(errs, fmt.Errorf("replay action %d: %w", i, err))
		}
	}
	r.live.logger.Debug("simulation confirmed", "actions", len(log), "errors", len(errs))
	return errors.Join(errs...)
}

// CancelUpdate discards the sandbox without touching the live container.
func (r *Runner[K, N]) CancelUpdate() error {
	if err := r.assertSimulating("CancelUpdate"); err != nil {
		return err
	}
	discarded := len(r.log)
	r.reset()
	r.live.logger.Debug("simulation cancelled", "actions", discarded)
	return nil
}

func (r *Runner[K, N]) assertSimulating(op string) error {
	if r.state != StateSimulating {
		return newError(CodeInvalidOperation, op, "not simulating")
	}
	return nil
}

func (r *Runner[K, N]) reset() {
	r.sandbox = nil
	r.log = nil
	r.state = StateIdle
}

// rebuild recreates the sandbox from the live container and the log.
func (r *Runner[K, N]) rebuild() {
	r.sandbox = r.live.CreateCopy()
	for _, action := range r.log {
		if err := action(r.sandbox); err != nil {
			panic(newError(CodeInvariantViolation, "RunSimulations",
				"logged action failed during rebuild: %v", err))
		}
	}
}

func (r *Runner[K, N]) diff() []Diff[K, N] {
	var diffs []Diff[K, N]
	index := make(map[K]int)
	put := func(d Diff[K, N]) {
		if i, ok := index[d.stat]; ok {
			diffs[i] = d
			return
		}
		index[d.stat] = len(diffs)
		diffs = append(diffs, d)
	}

	r.sandbox.ForEachStat(func(stat K, sv StatValue[K, N]) {
		after := sv.Value()
		before, ok := r.live.ValueOf(stat)
		switch {
		case !ok:
			put(NewDiff(stat, nil, &after))
		case before != after:
			put(NewDiff(stat, &before, &after))
		}
	})
	r.live.ForEachStat(func(stat K, sv StatValue[K, N]) {
		if r.sandbox.Has(stat) {
			return
		}
		before := sv.Value()
		put(NewDiff[K, N](stat, &before, nil))
	})
	return diffs
}
