package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/statsim/internal/ir"
)

// SessionQuery selects journaled sessions. Zero fields match every
// session.
type SessionQuery struct {
	Sheet     string
	SheetHash string
	Status    string
	AfterSeq  int64 // Only sessions with a greater seq
}

// compile renders q as parameterized SQL. Results are always ordered by
// seq with the ID as tiebreaker.
func (q SessionQuery) compile() (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	eq := func(col, v string) {
		if v != "" {
			conds = append(conds, col+" = ?")
			args = append(args, v)
		}
	}
	eq("sheet", q.Sheet)
	eq("sheet_hash", q.SheetHash)
	if q.Status != "" && q.Status != ir.StatusConfirmed && q.Status != ir.StatusCancelled {
		return "", nil, fmt.Errorf("unknown session status %q", q.Status)
	}
	eq("status", q.Status)
	if q.AfterSeq > 0 {
		conds = append(conds, "seq > ?")
		args = append(args, q.AfterSeq)
	}

	var b strings.Builder
	b.WriteString("SELECT " + sessionColumns + " FROM sessions")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY seq ASC, id COLLATE BINARY ASC")
	return b.String(), args, nil
}

// FindSessions returns the sessions matching q, ordered by seq ASC.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) FindSessions(ctx context.Context, q SessionQuery) ([]ir.SessionRecord, error) {
	query, args, err := q.compile()
	if err != nil {
		return nil, err
	}
	return s.querySessions(ctx, query, args...)
}
