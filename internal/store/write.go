package store

import (
	"context"
	"fmt"

	"github.com/roach88/statsim/internal/ir"
)

// WriteSession journals a finished session with its actions and diffs in
// one transaction. Uses ON CONFLICT(id) DO NOTHING for idempotency: a
// second write of the same ID reports inserted=false and changes nothing.
//
// A different session reusing a journaled seq violates the UNIQUE
// constraint and returns an error.
func (s *Store) WriteSession(ctx context.Context, rec ir.SessionRecord) (inserted bool, err error) {
	if rec.Status != ir.StatusConfirmed && rec.Status != ir.StatusCancelled {
		return false, fmt.Errorf("write session: invalid status %q", rec.Status)
	}
	contentHash, err := ir.HashSession(rec)
	if err != nil {
		return false, fmt.Errorf("write session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO sessions
		(id, seq, sheet, sheet_hash, status, state_digest, content_hash, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Seq,
		rec.Sheet,
		rec.SheetHash,
		rec.Status,
		rec.StateDigest,
		contentHash,
		rec.EngineVersion,
		rec.IRVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write session: rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	for i, a := range rec.Actions {
		actionJSON, err := marshalAction(a)
		if err != nil {
			return false, fmt.Errorf("write session: action %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_actions (session_id, idx, action)
			VALUES (?, ?, ?)
		`, rec.ID, i, actionJSON); err != nil {
			return false, fmt.Errorf("write session: action %d: %w", i, err)
		}
	}

	for i, d := range rec.Diffs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_diffs (session_id, idx, stat, before_value, after_value)
			VALUES (?, ?, ?, ?, ?)
		`, rec.ID, i, d.Stat, numberText(d.Before), numberText(d.After)); err != nil {
			return false, fmt.Errorf("write session: diff %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write session: commit: %w", err)
	}
	return true, nil
}
