// Package harness runs YAML scenarios against a stat sheet and checks the
// diffs and values they produce.
//
// # Scenario Format
//
//	name: equip_sword
//	description: "Equipping a sword raises strength and health"
//	sheet: ../sheets/knight.cue
//	setup:
//	  - {op: add_modifier, stat: armor, kind: flat, value: 10, source: plate}
//	steps:
//	  - simulate:
//	      - {op: add_modifier, stat: strength, kind: flat, value: 5, source: sword}
//	    expect_diffs:
//	      - {stat: strength, before: 10, after: 15}
//	      - {stat: max_health, before: 160, after: 165}
//	    confirm: true
//	    expect: {strength: 15}
//	expect: {max_health: 165}
//
// The sheet path is resolved relative to the scenario file.
//
// # Step Semantics
//
// Setup actions run as one confirmed session before the first step. Within
// a step, apply runs its actions as a one-shot confirmed session; simulate
// opens a session if none is open and runs its actions as one batch;
// confirm or cancel then closes the session. expect_diffs must match the
// session's net diff exactly, stat for stat, including which side is
// absent. expect checks live values and preview checks sandbox values, each
// within 1e-9.
//
// # Determinism
//
// Each run uses a fresh in-memory journal, a testutil.DeterministicClock
// and a testutil.SequentialIDGenerator, so traces are byte-stable and can
// be compared against golden files with RunWithGolden. After the last step
// the journal is replayed and every recorded state digest must reproduce.
package harness
