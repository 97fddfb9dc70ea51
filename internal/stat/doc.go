// Package stat implements the reactive stat engine.
//
// A Container owns a table of stats. Each stat is a StatValue holding a base
// value and an ordered list of modifiers. The displayed value is produced by
// folding the base value through a pass pipeline and then an optional
// post-processor. Calculated stats derive their base value from a formula
// over other stats in the same container.
//
// ARCHITECTURE:
//
// Lazy Recompute:
// Every mutation marks the owning StatValue dirty and fires a change
// notification. Value() recomputes only when dirty. Calculated stats listen
// to their declared dependencies and mark themselves dirty when any of them
// fires, so invalidation travels through chains of derived stats without
// recomputing anything until a value is read.
//
// Change Notifications:
// A notification carries the previous cached value. That value may be stale
// when the stat was already dirty; a notification only promises that a
// mutation happened, not that the value changed.
//
// Source Tracking:
// Modifiers attached with a non-nil source token are indexed by a
// SourceTracker so BatchRemoveStatModifiersFromSource can revoke everything a
// buff or item contributed. Source tokens must be comparable.
//
// Simulation:
// StartUpdate takes a deep copy of the container. RunSimulations applies
// actions to the copy and reports per-stat diffs against the live container.
// ConfirmUpdate replays the recorded actions on the live container and
// CancelUpdate throws the copy away.
//
// ORDERING:
//
//   - Modifier order is insertion order.
//   - Pipeline stages run in declaration order; each stage re-filters the full
//     modifier list.
//   - Subscribers fire most-recently-subscribed first.
//   - ForEachStat, Initialize and CreateCopy walk stats in insertion order.
//   - Diffs list sandbox stats in table order, then stats only the live
//     container still has.
//
// CONCURRENCY:
//
// A Container is not safe for concurrent use. All operations run to
// completion on the caller's goroutine. Hosts that share a container across
// goroutines must guard it with their own mutex.
package stat
