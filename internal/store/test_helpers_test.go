package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/statsim/internal/ir"
)

// createTestStore opens a fresh journal in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func f64(v float64) *float64 { return &v }

// createTestSession creates a session record with one action and one diff.
func createTestSession(id string, seq int64, status string) ir.SessionRecord {
	return ir.SessionRecord{
		ID:        id,
		Seq:       seq,
		Sheet:     "hero",
		SheetHash: "sheet-hash",
		Status:    status,
		Actions: []ir.ActionSpec{
			{Op: ir.OpAddModifier, Stat: "strength", Kind: ir.ModFlat, Value: 5, Source: "sword"},
		},
		Diffs: []ir.DiffRecord{
			{Stat: "strength", Before: f64(10), After: f64(15)},
		},
		StateDigest:   "digest-" + id,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}
