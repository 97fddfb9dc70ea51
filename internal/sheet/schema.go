package sheet

import "cuelang.org/go/cue"

// schemaSource constrains sheet files before compilation.
const schemaSource = `
#Stage: {
	kind:   "flat" | "percent" | "factor" | "override"
	label?: string
}

#Sheet: {
	name: string
	pipeline?: [...#Stage]
	stats: [string]: {
		display?:  string
		base?:     number
		formula?:  string
		deps?: [...string]
		inputs?: [string]: number
		constant?: number
		min?:      number
		max?:      number
		pipeline?: [...#Stage]
	}
}
`

// applySchema unifies v with #Sheet in v's own runtime. v stays the first
// conjunct so positions point into the sheet file.
func applySchema(v cue.Value) cue.Value {
	schema := v.Context().CompileString(schemaSource, cue.Filename("sheet-schema.cue"))
	return v.Unify(schema.LookupPath(cue.ParsePath("#Sheet")))
}
