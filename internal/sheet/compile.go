package sheet

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/statsim/internal/ir"
)

// Compile parses a CUE sheet value into a SheetSpec.
//
// The value is unified with the #Sheet schema first, then checked for the
// rules CUE cannot express: base and formula are exclusive, formulas must be
// registered, dependencies must name declared stats, min must not exceed
// max, and derived stats must not form a cycle.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src, cue.Filename("hero.cue"))
//	spec, err := sheet.Compile(v)
func Compile(v cue.Value) (*ir.SheetSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v = applySchema(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SheetSpec{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if name == "" {
		return nil, &CompileError{Field: "name", Message: "name must not be empty", Pos: nameVal.Pos()}
	}
	spec.Name = name

	spec.Pipeline, err = parsePipeline("pipeline", v.LookupPath(cue.ParsePath("pipeline")))
	if err != nil {
		return nil, err
	}

	positions := make(map[string]token.Pos)
	spec.Stats, err = parseStats(v.LookupPath(cue.ParsePath("stats")), positions)
	if err != nil {
		return nil, err
	}
	if len(spec.Stats) == 0 {
		return nil, &CompileError{Field: "stats", Message: "at least one stat is required", Pos: v.Pos()}
	}

	if err := checkDependencies(spec, positions); err != nil {
		return nil, err
	}
	if cycles := AnalyzeDependencies(spec); len(cycles) > 0 {
		first := cycles[0]
		return nil, &CompileError{
			Field:   "stats." + first.Path[0] + ".deps",
			Message: first.Message,
			Pos:     positions[first.Path[0]],
		}
	}
	return spec, nil
}

// parsePipeline reads an optional stage list. An absent field yields nil
// so the sheet default applies; an explicit empty list yields an empty
// pipeline.
func parsePipeline(field string, v cue.Value) ([]ir.PassSpec, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	passes := []ir.PassSpec{}
	for i := 0; iter.Next(); i++ {
		stage := iter.Value()
		kind, err := stage.LookupPath(cue.ParsePath("kind")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if !ir.ValidModifierKinds[kind] {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s[%d].kind", field, i),
				Message: fmt.Sprintf("unknown stage kind %q", kind),
				Pos:     stage.Pos(),
			}
		}
		pass := ir.PassSpec{Kind: kind}
		if labelVal := stage.LookupPath(cue.ParsePath("label")); labelVal.Exists() {
			if pass.Label, err = labelVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		passes = append(passes, pass)
	}
	return passes, nil
}

// parseStats reads the stat table in declaration order and records each
// stat's position for later diagnostics.
func parseStats(v cue.Value, positions map[string]token.Pos) ([]ir.StatSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var stats []ir.StatSpec
	for iter.Next() {
		id := iter.Selector().Unquoted()
		s, err := parseStat(id, iter.Value())
		if err != nil {
			return nil, err
		}
		positions[id] = iter.Value().Pos()
		stats = append(stats, *s)
	}
	return stats, nil
}

func parseStat(id string, v cue.Value) (*ir.StatSpec, error) {
	field := "stats." + id
	s := &ir.StatSpec{ID: id, Kind: ir.KindPrimary}

	var err error
	if s.DisplayName, err = optionalString(v, "display"); err != nil {
		return nil, err
	}

	baseVal := v.LookupPath(cue.ParsePath("base"))
	formulaVal := v.LookupPath(cue.ParsePath("formula"))
	if baseVal.Exists() && formulaVal.Exists() {
		return nil, &CompileError{
			Field:   field,
			Message: "base and formula are mutually exclusive",
			Pos:     v.Pos(),
		}
	}
	if baseVal.Exists() {
		if s.Base, err = baseVal.Float64(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if formulaVal.Exists() {
		if s.Formula, err = formulaVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
		if !IsFormula(s.Formula) {
			return nil, &CompileError{
				Field:   field + ".formula",
				Message: fmt.Sprintf("unknown formula %q, must be one of: %s", s.Formula, strings.Join(FormulaNames(), ", ")),
				Pos:     formulaVal.Pos(),
			}
		}
		s.Kind = ir.KindDerived
	}

	if s.Deps, err = parseDeps(field+".deps", v.LookupPath(cue.ParsePath("deps"))); err != nil {
		return nil, err
	}
	if s.Inputs, err = parseInputs(v.LookupPath(cue.ParsePath("inputs"))); err != nil {
		return nil, err
	}
	if constVal := v.LookupPath(cue.ParsePath("constant")); constVal.Exists() {
		if s.Constant, err = constVal.Float64(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if s.Kind == ir.KindPrimary && (len(s.Deps) > 0 || len(s.Inputs) > 0 || s.Constant != 0) {
		return nil, &CompileError{
			Field:   field,
			Message: "deps, inputs and constant require a formula",
			Pos:     v.Pos(),
		}
	}
	if len(s.Inputs) > 0 && s.Formula != FormulaWeighted {
		return nil, &CompileError{
			Field:   field + ".inputs",
			Message: fmt.Sprintf("inputs are only valid for the %s formula", FormulaWeighted),
			Pos:     v.LookupPath(cue.ParsePath("inputs")).Pos(),
		}
	}

	if s.Clamp.Min, err = optionalNumber(v, "min"); err != nil {
		return nil, err
	}
	if s.Clamp.Max, err = optionalNumber(v, "max"); err != nil {
		return nil, err
	}
	if s.Clamp.Min != nil && s.Clamp.Max != nil && *s.Clamp.Min > *s.Clamp.Max {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("min %s exceeds max %s", ir.FormatNumber(*s.Clamp.Min), ir.FormatNumber(*s.Clamp.Max)),
			Pos:     v.LookupPath(cue.ParsePath("min")).Pos(),
		}
	}

	if s.Pipeline, err = parsePipeline(field+".pipeline", v.LookupPath(cue.ParsePath("pipeline"))); err != nil {
		return nil, err
	}
	return s, nil
}

func parseDeps(field string, v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var deps []string
	seen := make(map[string]bool)
	for iter.Next() {
		dep, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if seen[dep] {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("duplicate dependency %q", dep),
				Pos:     iter.Value().Pos(),
			}
		}
		seen[dep] = true
		deps = append(deps, dep)
	}
	return deps, nil
}

func parseInputs(v cue.Value) ([]ir.InputSpec, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var inputs []ir.InputSpec
	for iter.Next() {
		weight, err := iter.Value().Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		inputs = append(inputs, ir.InputSpec{Stat: iter.Selector().Unquoted(), Weight: weight})
	}
	return inputs, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalNumber(v cue.Value, path string) (*float64, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil, nil
	}
	n, err := f.Float64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return &n, nil
}

// checkDependencies rejects derived stats that read undeclared stats.
func checkDependencies(spec *ir.SheetSpec, positions map[string]token.Pos) error {
	declared := make(map[string]bool, len(spec.Stats))
	for _, s := range spec.Stats {
		declared[s.ID] = true
	}
	for _, s := range spec.Stats {
		for _, dep := range s.Dependencies() {
			if !declared[dep] {
				return &CompileError{
					Field:   "stats." + s.ID + ".deps",
					Message: fmt.Sprintf("unknown stat %q", dep),
					Pos:     positions[s.ID],
				}
			}
		}
	}
	return nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError converts the first CUE error into a CompileError carrying
// its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
