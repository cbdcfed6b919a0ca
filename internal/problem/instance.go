package problem

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/ccsearch/internal/input"
)

// Instance is a validated problem. It is built once and never modified.
type Instance struct {
	Items       []Item
	Features    []*Feature
	Primary     int // 0-based
	GroupSpec   []int
	Constraints []Constraint
	Params      Params
}

// Build validates the table against spec and assembles the instance
func Build(t *input.Table, spec Spec, params Params) (*Instance, error) {
	if err := Validate(t, spec); err != nil {
		return nil, err
	}

	inst := &Instance{
		Items:       make([]Item, t.NumItems()),
		Features:    make([]*Feature, t.NumFeatures()),
		Primary:     spec.Primary - 1,
		GroupSpec:   slices.Clone(spec.GroupSpec),
		Constraints: slices.Clone(spec.Constraints),
		Params:      params,
	}
	for i := range inst.Items {
		inst.Items[i] = Item{ID: t.IDs[i], Value: t.Values[i], Cost: t.Costs[i]}
	}
	for j := range inst.Features {
		inst.Features[j] = newFeature(j, t.Features[j], slices.Contains(spec.Partitions, j+1))
	}
	return inst, nil
}

// NumItems returns the item count
func (in *Instance) NumItems() int {
	return len(in.Items)
}

// NumFeatures returns the feature count
func (in *Instance) NumFeatures() int {
	return len(in.Features)
}

// PrimaryFeature returns the feature carrying the group quotas
func (in *Instance) PrimaryFeature() *Feature {
	return in.Features[in.Primary]
}

// CollectionSize is the fixed number of items in every collection
func (in *Instance) CollectionSize() int {
	n := 0
	for _, q := range in.GroupSpec {
		n += q
	}
	return n
}

// CostLimit is the largest total cost a collection may have: the budget plus
// the floating-point tolerance. A negative tolerance counts as zero, matching
// the engine.
func (in *Instance) CostLimit() float64 {
	return in.Params.MaxCost + math.Max(in.Params.MaxCostTolerance, 0)
}

// WithinBudget reports whether a summed collection cost is feasible
func (in *Instance) WithinBudget(cost float64) bool {
	return cost <= in.CostLimit()
}

// LogStateSpace estimates log10 of the unpruned search space: the product
// over primary groups of C(groupSize, quota). Returns -1 when a group has
// fewer members than its quota, in which case no collection exists.
func (in *Instance) LogStateSpace() float64 {
	pf := in.PrimaryFeature()
	x := 0.0
	for g, q := range in.GroupSpec {
		if q <= 0 {
			continue
		}
		n := pf.GroupSize(g)
		if n < q {
			return -1
		}
		for j := 0; j < q; j++ {
			x += math.Log10(float64(n - j))
			x -= math.Log10(float64(j + 1))
		}
	}
	return x
}

// Fingerprint is a stable hash of everything the engine will see, used to
// correlate runs over identical inputs in logs
func (in *Instance) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte
	putInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}
	putFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}

	putInt(int64(len(in.Items)))
	for _, it := range in.Items {
		_, _ = d.WriteString(it.ID)
		_, _ = d.Write([]byte{0})
		putFloat(it.Value)
		putFloat(it.Cost)
	}
	putInt(int64(len(in.Features)))
	for _, f := range in.Features {
		for _, gl := range f.Membership {
			putInt(int64(len(gl)))
			for _, g := range gl {
				putInt(int64(g))
			}
		}
	}
	putInt(int64(in.Primary))
	for _, q := range in.GroupSpec {
		putInt(int64(q))
	}
	for _, c := range in.Constraints {
		putInt(int64(c.Kind))
		putInt(int64(c.Feature))
		putInt(int64(c.Threshold))
	}
	putFloat(in.Params.MaxCost)
	putFloat(in.Params.MaxCostTolerance)
	return d.Sum64()
}
