// Package store provides the SQLite-backed session journal.
//
// Each finished what-if session is written once, atomically, as three
// kinds of rows:
//   - sessions: header with sheet identity, status and state digest
//   - session_actions: the simulated actions in run order
//   - session_diffs: the net per-stat diff
//
// # Ordering
//
// Sessions are ordered by seq, a logical clock owned by the session
// manager. Every query orders by seq ASC, then idx ASC for child rows, so
// reads are identical across runs.
//
// # Integrity
//
// Each header stores ir.HashSession of the full record. ReadSession
// recomputes it and returns ErrCorrupt on mismatch.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
