package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statsim/internal/ir"
)

func TestSessionQuery_Compile(t *testing.T) {
	tests := []struct {
		name      string
		query     SessionQuery
		wantWhere string
		wantArgs  []any
	}{
		{"empty", SessionQuery{}, "", nil},
		{"sheet", SessionQuery{Sheet: "hero"}, " WHERE sheet = ?", []any{"hero"}},
		{
			"all fields",
			SessionQuery{Sheet: "hero", SheetHash: "h", Status: ir.StatusConfirmed, AfterSeq: 7},
			" WHERE sheet = ? AND sheet_hash = ? AND status = ? AND seq > ?",
			[]any{"hero", "h", ir.StatusConfirmed, int64(7)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := tt.query.compile()
			require.NoError(t, err)
			want := "SELECT " + sessionColumns + " FROM sessions" + tt.wantWhere +
				" ORDER BY seq ASC, id COLLATE BINARY ASC"
			assert.Equal(t, want, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSessionQuery_RejectsUnknownStatus(t *testing.T) {
	_, _, err := SessionQuery{Status: "pending"}.compile()
	assert.ErrorContains(t, err, `unknown session status "pending"`)
}

func TestFindSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	villain := createTestSession("v-1", 2, ir.StatusConfirmed)
	villain.Sheet = "villain"
	for _, rec := range []ir.SessionRecord{
		createTestSession("h-1", 1, ir.StatusConfirmed),
		villain,
		createTestSession("h-2", 3, ir.StatusCancelled),
		createTestSession("h-3", 4, ir.StatusConfirmed),
	} {
		_, err := s.WriteSession(ctx, rec)
		require.NoError(t, err)
	}

	ids := func(q SessionQuery) []string {
		t.Helper()
		sessions, err := s.FindSessions(ctx, q)
		require.NoError(t, err)
		out := make([]string, len(sessions))
		for i, rec := range sessions {
			out[i] = rec.ID
		}
		return out
	}

	assert.Equal(t, []string{"h-1", "v-1", "h-2", "h-3"}, ids(SessionQuery{}))
	assert.Equal(t, []string{"h-1", "h-2", "h-3"}, ids(SessionQuery{Sheet: "hero"}))
	assert.Equal(t, []string{"h-1", "v-1", "h-3"}, ids(SessionQuery{Status: ir.StatusConfirmed}))
	assert.Equal(t, []string{"h-2", "h-3"}, ids(SessionQuery{Sheet: "hero", AfterSeq: 1}))
	assert.Empty(t, ids(SessionQuery{Sheet: "nobody"}))
}
