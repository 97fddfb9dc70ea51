// Package session runs journaled what-if sessions over a sheet's live
// container.
//
// A Manager owns one container built from a compiled sheet. Begin opens a
// simulation on a sandbox copy, Simulate applies batches of actions and
// reports the net diff against the live state, and Confirm or Cancel
// closes the session. Confirm replays the session's actions onto the live
// container.
//
// # Journal
//
// With a store attached, every closed session is written as an
// ir.SessionRecord carrying the sheet hash, the actions, the net diff and
// the digest of the live state afterwards. Sessions are ordered by a
// logical clock, never by wall time. A Manager opened on an existing
// journal first replays the confirmed sessions for its sheet, so live
// state survives restarts, and Replay re-derives the same state from
// scratch to check determinism.
//
// # Concurrency
//
// A Manager is not safe for concurrent use, matching the container it
// wraps.
package session
