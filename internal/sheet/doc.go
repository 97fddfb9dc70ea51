// Package sheet compiles CUE stat sheets and builds stat containers from
// them.
//
// A sheet file declares a name, an optional default pipeline and the stat
// table:
//
//	name: "hero"
//	pipeline: [{kind: "flat"}, {kind: "percent"}]
//	stats: {
//		strength: base: 10
//		max_health: {
//			formula: "weighted"
//			inputs: strength: 5
//			constant: 50
//			min: 1
//		}
//	}
//
// Stats without a formula are primary. Derived stats name a formula from a
// fixed registry (sum, product, min, max, weighted) and the stats it reads.
// Compile rejects unknown formulas, dangling dependencies and dependency
// cycles, so a compiled sheet always builds.
package sheet
