package sheet

import (
	"maps"
	"slices"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/stat"
)

// Formula names.
const (
	FormulaSum      = "sum"
	FormulaProduct  = "product"
	FormulaMin      = "min"
	FormulaMax      = "max"
	FormulaWeighted = "weighted"
)

// FormulaFactory binds a stat's declaration to its formula. Every formula
// adds the stat's constant to its result. Dependencies missing from the
// container at evaluation time are skipped.
type FormulaFactory func(s ir.StatSpec) stat.Formula[string, float64]

var formulas = map[string]FormulaFactory{
	FormulaSum:      sumFormula,
	FormulaProduct:  productFormula,
	FormulaMin:      extremumFormula(func(a, b float64) bool { return a < b }),
	FormulaMax:      extremumFormula(func(a, b float64) bool { return a > b }),
	FormulaWeighted: weightedFormula,
}

// IsFormula reports whether name is a registered formula.
func IsFormula(name string) bool {
	_, ok := formulas[name]
	return ok
}

// FormulaNames returns the registered formula names, sorted.
func FormulaNames() []string {
	return slices.Sorted(maps.Keys(formulas))
}

func sumFormula(s ir.StatSpec) stat.Formula[string, float64] {
	deps := s.Deps
	return func(c *stat.Container[string, float64]) float64 {
		total := s.Constant
		for _, d := range deps {
			total += c.ValueOr(d, 0)
		}
		return total
	}
}

// productFormula multiplies the present dependencies. With none present
// the product is 1.
func productFormula(s ir.StatSpec) stat.Formula[string, float64] {
	deps := s.Deps
	return func(c *stat.Container[string, float64]) float64 {
		product := 1.0
		for _, d := range deps {
			if v, ok := c.ValueOf(d); ok {
				product *= v
			}
		}
		return s.Constant + product
	}
}

// extremumFormula picks the dependency value preferred by better. With no
// dependency present the result is the constant alone.
func extremumFormula(better func(a, b float64) bool) FormulaFactory {
	return func(s ir.StatSpec) stat.Formula[string, float64] {
		deps := s.Deps
		return func(c *stat.Container[string, float64]) float64 {
			var (
				best  float64
				found bool
			)
			for _, d := range deps {
				v, ok := c.ValueOf(d)
				if !ok {
					continue
				}
				if !found || better(v, best) {
					best, found = v, true
				}
			}
			return s.Constant + best
		}
	}
}

// weightedFormula is constant + Σ weight·input, with plain deps weighted 1.
func weightedFormula(s ir.StatSpec) stat.Formula[string, float64] {
	deps := s.Deps
	inputs := s.Inputs
	return func(c *stat.Container[string, float64]) float64 {
		total := s.Constant
		for _, d := range deps {
			total += c.ValueOr(d, 0)
		}
		for _, in := range inputs {
			total += in.Weight * c.ValueOr(in.Stat, 0)
		}
		return total
	}
}
