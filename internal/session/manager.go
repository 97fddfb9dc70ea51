package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/statsim/internal/action"
	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/sheet"
	"github.com/roach88/statsim/internal/stat"
	"github.com/roach88/statsim/internal/store"
)

var (
	// ErrNoSession is returned by operations that need an open session.
	ErrNoSession = errors.New("no active session")
	// ErrSessionActive is returned by Begin while a session is open.
	ErrSessionActive = errors.New("session already active")
	// ErrDigestMismatch is returned when re-applied journal sessions do
	// not reproduce the recorded state.
	ErrDigestMismatch = errors.New("state digest mismatch")
)

// Option configures a Manager.
type Option func(*Manager)

// WithStore journals closed sessions to st.
func WithStore(st *store.Store) Option {
	return func(m *Manager) { m.store = st }
}

// WithClock sets the clock that numbers sessions. The default resumes
// after the journal's last seq, or starts at 0 without a journal.
func WithClock(c SeqClock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithIDGenerator sets the session ID source. Defaults to UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

// WithLogger sets the logger for the manager and its container.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager runs what-if sessions over one sheet's live container.
type Manager struct {
	spec      *ir.SheetSpec
	sheetHash string
	container *stat.Container[string, float64]
	store     *store.Store
	clock     SeqClock
	ids       IDGenerator
	logger    *slog.Logger

	active *activeSession
}

type activeSession struct {
	id      string
	actions []ir.ActionSpec
	diffs   []ir.DiffRecord
}

// NewManager builds the sheet's container and, with a store attached,
// restores the live state from the sheet's confirmed sessions. A journal
// that no longer reproduces its recorded digests is rejected with
// ErrDigestMismatch.
func NewManager(ctx context.Context, spec *ir.SheetSpec, opts ...Option) (*Manager, error) {
	m := &Manager{spec: spec, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	hash, err := ir.HashSheet(spec)
	if err != nil {
		return nil, err
	}
	m.sheetHash = hash

	if m.store == nil {
		m.container, err = sheet.Build(spec, stat.WithLogger(m.logger))
		if err != nil {
			return nil, err
		}
		if m.clock == nil {
			m.clock = NewClock()
		}
		return m, nil
	}

	res, err := replay(ctx, spec, hash, m.store, m.logger)
	if err != nil {
		return nil, err
	}
	if len(res.Mismatches) > 0 {
		first := res.Mismatches[0]
		return nil, fmt.Errorf("session %s (seq %d): %w", first.SessionID, first.Seq, ErrDigestMismatch)
	}
	m.container = res.Container

	if m.clock == nil {
		next, err := m.store.NextSeq(ctx)
		if err != nil {
			return nil, err
		}
		m.clock = NewClockAt(next - 1)
	}
	m.logger.Info("session manager ready",
		"sheet", spec.Name,
		"restored_sessions", res.Sessions,
		"next_seq", m.clock.Current()+1,
	)
	return m, nil
}

// Container returns the live container.
func (m *Manager) Container() *stat.Container[string, float64] { return m.container }

// Sheet returns the compiled sheet.
func (m *Manager) Sheet() *ir.SheetSpec { return m.spec }

// SheetHash returns the sheet's content hash.
func (m *Manager) SheetHash() string { return m.sheetHash }

// Active returns the open session's ID.
func (m *Manager) Active() (string, bool) {
	if m.active == nil {
		return "", false
	}
	return m.active.id, true
}

// Begin opens a session on a sandbox copy of the live container.
func (m *Manager) Begin() (string, error) {
	if m.active != nil {
		return "", fmt.Errorf("begin: %w (%s)", ErrSessionActive, m.active.id)
	}
	if err := m.container.StartUpdate(); err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	m.active = &activeSession{id: m.ids.Generate(), diffs: []ir.DiffRecord{}}
	m.logger.Debug("session begun", "session", m.active.id)
	return m.active.id, nil
}

// Simulate applies actions to the sandbox as one batch and returns the net
// diff of the session so far. A batch that fails validation or application
// leaves the sandbox as it was.
func (m *Manager) Simulate(actions ...ir.ActionSpec) ([]ir.DiffRecord, error) {
	if m.active == nil {
		return nil, fmt.Errorf("simulate: %w", ErrNoSession)
	}
	seq, err := action.Sequence(actions)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	diffs, err := m.container.RunSimulations(seq)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	m.active.actions = append(m.active.actions, actions...)
	m.active.diffs = DiffRecords(diffs)
	m.logger.Debug("session simulated",
		"session", m.active.id,
		"actions", len(actions),
		"changed", len(m.active.diffs),
	)
	return m.active.diffs, nil
}

// Diffs returns the open session's net diff.
func (m *Manager) Diffs() []ir.DiffRecord {
	if m.active == nil {
		return nil
	}
	return m.active.diffs
}

// Preview returns the sandbox value of a stat during a session, or the
// live value otherwise.
func (m *Manager) Preview(id string) (float64, bool) {
	if sb := m.container.Runner().Sandbox(); sb != nil {
		return sb.ValueOf(id)
	}
	return m.container.ValueOf(id)
}

// Confirm applies the session to the live container and journals it.
func (m *Manager) Confirm(ctx context.Context) (ir.SessionRecord, error) {
	if m.active == nil {
		return ir.SessionRecord{}, fmt.Errorf("confirm: %w", ErrNoSession)
	}
	if err := m.container.ConfirmUpdate(); err != nil {
		// The live container may be partly updated; nothing is journaled.
		m.active = nil
		return ir.SessionRecord{}, fmt.Errorf("confirm: %w", err)
	}
	return m.close(ctx, ir.StatusConfirmed)
}

// Cancel discards the sandbox and journals the session as cancelled.
func (m *Manager) Cancel(ctx context.Context) (ir.SessionRecord, error) {
	if m.active == nil {
		return ir.SessionRecord{}, fmt.Errorf("cancel: %w", ErrNoSession)
	}
	if err := m.container.CancelUpdate(); err != nil {
		return ir.SessionRecord{}, fmt.Errorf("cancel: %w", err)
	}
	return m.close(ctx, ir.StatusCancelled)
}

func (m *Manager) close(ctx context.Context, status string) (ir.SessionRecord, error) {
	s := m.active
	m.active = nil

	digest, err := Digest(m.container)
	if err != nil {
		return ir.SessionRecord{}, err
	}
	rec := ir.SessionRecord{
		ID:            s.id,
		Seq:           m.clock.Next(),
		Sheet:         m.spec.Name,
		SheetHash:     m.sheetHash,
		Status:        status,
		Actions:       s.actions,
		Diffs:         s.diffs,
		StateDigest:   digest,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	if rec.Actions == nil {
		rec.Actions = []ir.ActionSpec{}
	}

	if m.store != nil {
		if _, err := m.store.WriteSession(ctx, rec); err != nil {
			return rec, fmt.Errorf("journal session %s: %w", rec.ID, err)
		}
	}
	m.logger.Info("session closed",
		"session", rec.ID,
		"seq", rec.Seq,
		"status", status,
		"actions", len(rec.Actions),
		"changed", len(rec.Diffs),
	)
	return rec, nil
}

// Snapshot captures the live container.
func (m *Manager) Snapshot() ir.StatSnapshot { return Snapshot(m.container) }

// Digest hashes the live container's snapshot.
func (m *Manager) Digest() (string, error) { return Digest(m.container) }

// DiffRecords converts container diffs to their serializable form.
func DiffRecords(diffs []stat.Diff[string, float64]) []ir.DiffRecord {
	out := make([]ir.DiffRecord, len(diffs))
	for i, d := range diffs {
		rec := ir.DiffRecord{Stat: d.Stat()}
		if v, ok := d.Before(); ok {
			rec.Before = &v
		}
		if v, ok := d.After(); ok {
			rec.After = &v
		}
		out[i] = rec
	}
	return out
}
