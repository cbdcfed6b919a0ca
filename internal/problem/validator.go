package problem

import (
	"fmt"

	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
	"github.com/standardbeagle/ccsearch/internal/input"
)

// Validator checks a parsed table against the structural preconditions of
// the engine. It never stops at the first problem: every violation is
// collected so the input can be fixed in one pass.
type Validator struct {
	problems []string
}

// NewValidator creates a new problem validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate is a convenience wrapper around Validator.Validate
func Validate(t *input.Table, spec Spec) error {
	return NewValidator().Validate(t, spec)
}

func (v *Validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// Validate returns nil or a ValidationError listing every problem found
func (v *Validator) Validate(t *input.Table, spec Spec) error {
	v.problems = nil

	ni := t.NumItems()
	nf := t.NumFeatures()

	v.validateShape(t, spec, ni, nf)
	v.validateIDs(t)
	v.validateScores(t)
	v.validateCells(t)
	v.validateFeatures(t, spec)
	v.validateReferences(spec, nf)

	if len(v.problems) > 0 {
		return ccserrors.NewValidationError(v.problems)
	}
	return nil
}

func (v *Validator) validateShape(t *input.Table, spec Spec, ni, nf int) {
	if len(t.Values) != ni || len(t.Costs) != ni {
		v.addf("columns read from input differ in length: %d ids, %d values, %d costs", ni, len(t.Values), len(t.Costs))
	}
	for j, col := range t.Features {
		if len(col) != ni {
			v.addf("feature %d column has %d entries, expected %d", j+1, len(col), ni)
		}
	}
	if nf == 0 {
		v.addf("input has no feature columns, at least one is required")
	}
	if ni == 0 {
		v.addf("input has no items")
	}
	if spec.Primary < 1 || spec.Primary > nf {
		v.addf("primary feature %d is out of range (input has %d features)", spec.Primary, nf)
	}
	if len(spec.GroupSpec) == 0 || spec.CollectionSize() <= 0 {
		v.addf("total collection size (sum of primary group counts) must be > 0")
	}
	for g, q := range spec.GroupSpec {
		if q < 0 {
			v.addf("primary group %d selection count must be >= 0, got %d", g+1, q)
		}
	}
}

func (v *Validator) validateIDs(t *input.Table) {
	seen := make(map[string]int, len(t.IDs))
	for i, id := range t.IDs {
		line := lineOf(t, i)
		if id == "" {
			v.addf("line %d: empty item id not allowed", line)
			continue
		}
		if first, dup := seen[id]; dup {
			v.addf("line %d: duplicate item id %q (first seen on line %d)", line, id, first)
			continue
		}
		seen[id] = line
	}
}

func (v *Validator) validateScores(t *input.Table) {
	unparsed := make(map[[2]int]bool, len(t.BadCells))
	for _, bc := range t.BadCells {
		unparsed[[2]int{bc.Item, bc.Column}] = true
	}
	check := func(name string, col int, vals []float64) {
		for i, x := range vals {
			if unparsed[[2]int{i, col}] {
				continue
			}
			// NaN fails the comparison and is rejected with the rest
			if !(x > MinScore) {
				v.addf("line %d: %s %v must be > %v", lineOf(t, i), name, x, MinScore)
			}
		}
	}
	check("value", input.ColumnValue, t.Values)
	check("cost", input.ColumnCost, t.Costs)
}

func (v *Validator) validateCells(t *input.Table) {
	for _, bc := range t.BadCells {
		v.addf("%s", bc)
	}
}

func (v *Validator) validateFeatures(t *input.Table, spec Spec) {
	primary := spec.Primary - 1
	numPrimaryGroups := len(spec.GroupSpec)

	for j, col := range t.Features {
		for i, gl := range col {
			for _, g := range gl {
				if g < 1 {
					v.addf("line %d: feature %d group %d must be >= 1", lineOf(t, i), j+1, g)
					continue
				}
				if j == primary && g > numPrimaryGroups {
					v.addf("line %d: primary feature group %d exceeds the %d groups given in the group spec", lineOf(t, i), g, numPrimaryGroups)
				}
			}
		}
	}
}

func (v *Validator) validateReferences(spec Spec, nf int) {
	for _, p := range spec.Partitions {
		if p < 1 || p > nf {
			v.addf("partition feature %d is out of range (input has %d features)", p, nf)
		}
	}
	for _, c := range spec.Constraints {
		if c.Feature < 1 || c.Feature > nf {
			v.addf("constraint %s refers to feature %d, input has %d features", c, c.Feature, nf)
		}
		if c.Threshold < 0 {
			v.addf("constraint %s threshold must be >= 0", c)
		}
		if c.Kind != MinGroups && c.Kind != MaxItemsPerGroup {
			v.addf("constraint %s has unknown kind", c)
		}
	}
}

// lineOf returns the source line for item i, or its 1-based position when
// the table was built without line information
func lineOf(t *input.Table, i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 1
}
