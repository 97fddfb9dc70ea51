// Package ir provides the canonical data types shared by the sheet
// compiler, the session journal, the scenario harness and the CLI.
//
// This package contains type definitions and canonical encoding only.
// All other internal packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Canonical bytes never contain floats. Stat values are float64 in
//     memory and are rendered with FormatNumber before hashing.
//   - All JSON tags use snake_case.
//   - Logical clocks (seq) only, never wall-clock timestamps.
package ir
