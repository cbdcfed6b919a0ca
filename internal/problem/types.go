// Package problem holds the validated, read-only problem instance that is
// handed to the search engine: items, feature group memberships, the primary
// group quotas, auxiliary constraints and the search parameters.
package problem

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/standardbeagle/ccsearch/internal/input"
)

const (
	// MinScore is the exclusive lower bound for item values and costs.
	// The engine reserves -999999 as its "bad value" marker.
	MinScore = -999998.0

	// MaxEngineItems is the largest item count the engine accepts; item
	// indices are packed into 16 bits on its side.
	MaxEngineItems = 32767

	// MinResultBlockSize is the smallest accepted result block allocation
	MinResultBlockSize = 10
)

// ConstraintKind identifies one of the engine's built-in constraint types.
// The numeric values are the engine's type codes.
type ConstraintKind int

const (
	// MinGroups requires items from at least Threshold distinct groups
	MinGroups ConstraintKind = 0
	// MaxItemsPerGroup allows at most Threshold items from any one group
	MaxItemsPerGroup ConstraintKind = 1
)

// ConstraintKindNames maps the command-line spelling to each kind
var ConstraintKindNames = map[string]ConstraintKind{
	"mingrp":  MinGroups,
	"maxitem": MaxItemsPerGroup,
}

func (k ConstraintKind) String() string {
	switch k {
	case MinGroups:
		return "mingrp"
	case MaxItemsPerGroup:
		return "maxitem"
	}
	return fmt.Sprintf("ConstraintKind(%d)", int(k))
}

// Constraint is an auxiliary group rule in user-facing form: Feature is
// 1-based, as written on the command line.
type Constraint struct {
	Kind      ConstraintKind
	Feature   int
	Threshold int
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s:%d:%d", c.Kind, c.Feature, c.Threshold)
}

// SearchMode selects the engine's search order
type SearchMode int

const (
	FewestToMostByValue SearchMode = 1
	MostToFewestByValue SearchMode = 2
	FewestToMostByCost  SearchMode = 3
	MostToFewestByCost  SearchMode = 4
)

func (m SearchMode) String() string {
	switch m {
	case FewestToMostByValue:
		return "fewest-to-most combinations / decreasing value"
	case MostToFewestByValue:
		return "most-to-fewest combinations / decreasing value"
	case FewestToMostByCost:
		return "fewest-to-most combinations / increasing cost"
	case MostToFewestByCost:
		return "most-to-fewest combinations / increasing cost"
	}
	return fmt.Sprintf("SearchMode(%d)", int(m))
}

// Params are the engine tuning and result-shaping parameters
type Params struct {
	MaxCost             float64
	MaxCostTolerance    float64
	CollectionTolerance float64
	ItemCullTolerance   float64
	GroupCullMargin     int
	ResultBlockSize     int
	MaxResults          int64
	SearchMode          SearchMode
}

// Spec is the externally supplied structure that the input table is
// validated against. Feature numbers are 1-based.
type Spec struct {
	Primary     int
	GroupSpec   []int
	Partitions  []int
	Constraints []Constraint
}

// CollectionSize is the sum of the primary group quotas
func (s Spec) CollectionSize() int {
	n := 0
	for _, q := range s.GroupSpec {
		n += q
	}
	return n
}

// Item is one selectable item
type Item struct {
	ID    string
	Value float64
	Cost  float64
}

// Feature is one membership column. Membership holds each item's 1-based
// group numbers; groups holds the same data per 0-based group as bitmaps.
type Feature struct {
	Index       int
	Membership  []input.GroupList
	GroupCount  int
	IsPartition bool

	groups []*roaring.Bitmap
}

func newFeature(index int, membership []input.GroupList, isPartition bool) *Feature {
	f := &Feature{
		Index:       index,
		Membership:  membership,
		IsPartition: isPartition,
	}
	for _, gl := range membership {
		if m := gl.MaxGroup(); m > f.GroupCount {
			f.GroupCount = m
		}
	}
	f.groups = make([]*roaring.Bitmap, f.GroupCount)
	for g := range f.groups {
		f.groups[g] = roaring.New()
	}
	for item, gl := range membership {
		for _, g := range gl {
			if g >= 1 {
				f.groups[g-1].Add(uint32(item))
			}
		}
	}
	return f
}

// GroupSize returns the number of items in 0-based group g
func (f *Feature) GroupSize(g int) int {
	if g < 0 || g >= len(f.groups) {
		return 0
	}
	return int(f.groups[g].GetCardinality())
}

// Members returns a copy of the item set of 0-based group g
func (f *Feature) Members(g int) *roaring.Bitmap {
	if g < 0 || g >= len(f.groups) {
		return roaring.New()
	}
	return f.groups[g].Clone()
}

// LooksLikePartition reports whether every item belongs to exactly one group
func (f *Feature) LooksLikePartition() bool {
	n := len(f.Membership)
	if n == 0 {
		return false
	}
	total := 0
	for _, b := range f.groups {
		total += int(b.GetCardinality())
	}
	if total != n {
		return false
	}
	return roaring.FastOr(f.groups...).GetCardinality() == uint64(n)
}

func (f *Feature) String() string {
	sizes := make([]string, f.GroupCount)
	for g := range sizes {
		sizes[g] = fmt.Sprint(f.GroupSize(g))
	}
	return fmt.Sprintf("feature %d: %d groups [%s]", f.Index+1, f.GroupCount, strings.Join(sizes, " "))
}
