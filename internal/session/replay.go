package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/statsim/internal/action"
	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/sheet"
	"github.com/roach88/statsim/internal/stat"
	"github.com/roach88/statsim/internal/store"
)

// ReplayResult reports a rebuild of a sheet's live state from its journal.
type ReplayResult struct {
	SheetHash  string
	Sessions   int // Confirmed sessions re-applied
	Mismatches []DigestMismatch
	Final      ir.StatSnapshot
	Container  *stat.Container[string, float64]
}

// OK reports whether every session reproduced its recorded digest.
func (r *ReplayResult) OK() bool { return len(r.Mismatches) == 0 }

// DigestMismatch is a session whose re-applied actions produced a state
// other than the one recorded when it was confirmed.
type DigestMismatch struct {
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
	Expected  string `json:"expected"`
	Got       string `json:"got"`
}

// Replay rebuilds spec's container and re-applies the confirmed sessions
// journaled for it, in seq order, checking each recorded digest.
// Mismatches are reported, not returned as errors; replay continues past
// them so every divergence is listed.
func Replay(ctx context.Context, spec *ir.SheetSpec, st *store.Store, logger *slog.Logger) (*ReplayResult, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	hash, err := ir.HashSheet(spec)
	if err != nil {
		return nil, err
	}
	return replay(ctx, spec, hash, st, logger)
}

func replay(ctx context.Context, spec *ir.SheetSpec, hash string, st *store.Store, logger *slog.Logger) (*ReplayResult, error) {
	c, err := sheet.Build(spec, stat.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	sessions, err := st.ReadConfirmedSessions(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	res := &ReplayResult{SheetHash: hash, Container: c}
	for _, rec := range sessions {
		if err := action.Apply(c, rec.Actions...); err != nil {
			return nil, fmt.Errorf("replay session %s (seq %d): %w", rec.ID, rec.Seq, err)
		}
		res.Sessions++

		got, err := Digest(c)
		if err != nil {
			return nil, err
		}
		if got != rec.StateDigest {
			res.Mismatches = append(res.Mismatches, DigestMismatch{
				SessionID: rec.ID,
				Seq:       rec.Seq,
				Expected:  rec.StateDigest,
				Got:       got,
			})
			logger.Warn("replay digest mismatch", "session", rec.ID, "seq", rec.Seq)
		}
	}
	res.Final = Snapshot(c)
	logger.Debug("replay finished", "sheet", spec.Name, "sessions", res.Sessions, "mismatches", len(res.Mismatches))
	return res, nil
}
