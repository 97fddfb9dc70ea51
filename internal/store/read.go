package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/statsim/internal/ir"
)

// ErrCorrupt is returned when a journaled session no longer matches its
// content hash.
var ErrCorrupt = errors.New("journal record corrupt")

const sessionColumns = `id, seq, sheet, sheet_hash, status, state_digest, content_hash, engine_version, ir_version`

// ReadSession retrieves a single session with its actions and diffs.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = ?
	`, id)

	rec, contentHash, err := scanSession(row)
	if err != nil {
		return ir.SessionRecord{}, err
	}
	if err := s.loadChildren(ctx, &rec); err != nil {
		return ir.SessionRecord{}, err
	}
	if err := verifyContent(rec, contentHash); err != nil {
		return ir.SessionRecord{}, err
	}
	return rec, nil
}

// ListSessions returns every journaled session ordered by seq ASC.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListSessions(ctx context.Context) ([]ir.SessionRecord, error) {
	return s.FindSessions(ctx, SessionQuery{})
}

// ReadConfirmedSessions returns the confirmed sessions recorded against a
// sheet hash, ordered by seq ASC. Replay re-applies them in this order.
func (s *Store) ReadConfirmedSessions(ctx context.Context, sheetHash string) ([]ir.SessionRecord, error) {
	return s.FindSessions(ctx, SessionQuery{SheetHash: sheetHash, Status: ir.StatusConfirmed})
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]ir.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	type pending struct {
		rec  ir.SessionRecord
		hash string
	}
	var found []pending
	for rows.Next() {
		rec, hash, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		found = append(found, pending{rec: rec, hash: hash})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	// Children are read on the same single connection, so the cursor
	// must be closed first.
	rows.Close()

	sessions := make([]ir.SessionRecord, 0, len(found))
	for _, p := range found {
		rec := p.rec
		if err := s.loadChildren(ctx, &rec); err != nil {
			return nil, err
		}
		if err := verifyContent(rec, p.hash); err != nil {
			return nil, err
		}
		sessions = append(sessions, rec)
	}
	return sessions, nil
}

// loadChildren fills rec's actions and diffs, ordered by idx ASC.
func (s *Store) loadChildren(ctx context.Context, rec *ir.SessionRecord) error {
	actions, err := s.readActions(ctx, rec.ID)
	if err != nil {
		return err
	}
	diffs, err := s.readDiffs(ctx, rec.ID)
	if err != nil {
		return err
	}
	rec.Actions = actions
	rec.Diffs = diffs
	return nil
}

func (s *Store) readActions(ctx context.Context, sessionID string) ([]ir.ActionSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action
		FROM session_actions
		WHERE session_id = ?
		ORDER BY idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	actions := []ir.ActionSpec{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a, err := unmarshalAction(data)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return actions, nil
}

func (s *Store) readDiffs(ctx context.Context, sessionID string) ([]ir.DiffRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stat, before_value, after_value
		FROM session_diffs
		WHERE session_id = ?
		ORDER BY idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query diffs: %w", err)
	}
	defer rows.Close()

	diffs := []ir.DiffRecord{}
	for rows.Next() {
		var (
			d             ir.DiffRecord
			before, after sql.NullString
		)
		if err := rows.Scan(&d.Stat, &before, &after); err != nil {
			return nil, fmt.Errorf("scan diff: %w", err)
		}
		if d.Before, err = parseNumberText(before); err != nil {
			return nil, err
		}
		if d.After, err = parseNumberText(after); err != nil {
			return nil, err
		}
		diffs = append(diffs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diffs: %w", err)
	}
	return diffs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (ir.SessionRecord, string, error) {
	var (
		rec         ir.SessionRecord
		contentHash string
	)
	err := row.Scan(
		&rec.ID, &rec.Seq, &rec.Sheet, &rec.SheetHash, &rec.Status,
		&rec.StateDigest, &contentHash, &rec.EngineVersion, &rec.IRVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.SessionRecord{}, "", err
	}
	if err != nil {
		return ir.SessionRecord{}, "", fmt.Errorf("scan session: %w", err)
	}
	return rec, contentHash, nil
}

func verifyContent(rec ir.SessionRecord, expected string) error {
	got, err := ir.HashSession(rec)
	if err != nil {
		return fmt.Errorf("verify session %s: %w", rec.ID, err)
	}
	if got != expected {
		return fmt.Errorf("session %s: %w", rec.ID, ErrCorrupt)
	}
	return nil
}
