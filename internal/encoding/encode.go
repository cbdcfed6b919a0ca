package encoding

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/ccsearch/internal/problem"
)

// Triple is one constraint in engine form: kind code, 0-based feature index
// and threshold
type Triple struct {
	Kind      int32
	Feature   int32
	Threshold int32
}

// Args is the argument array passed with set_constraint
func (t Triple) Args() []int32 {
	return []int32{t.Feature, t.Threshold}
}

// EncodeConstraint converts a 1-based constraint into engine form
func EncodeConstraint(c problem.Constraint) Triple {
	return Triple{
		Kind:      int32(c.Kind),
		Feature:   int32(c.Feature - 1),
		Threshold: int32(c.Threshold),
	}
}

// EncodeConstraints converts constraints preserving declaration order
func EncodeConstraints(cs []problem.Constraint) []Triple {
	out := make([]Triple, len(cs))
	for i, c := range cs {
		out[i] = EncodeConstraint(c)
	}
	return out
}

// EncodeItems returns the cost and value columns as float32, indexed by item
func EncodeItems(items []problem.Item) (costs, values []float32) {
	costs = make([]float32, len(items))
	values = make([]float32, len(items))
	for i, it := range items {
		costs[i] = float32(it.Cost)
		values[i] = float32(it.Value)
	}
	return costs, values
}

// Encoded is everything the engine receives for one instance
type Encoded struct {
	Features    []*Matrix
	Constraints []Triple
	GroupSpec   []int32
	Costs       []float32
	Values      []float32
}

// Encode builds all engine-facing arrays. Feature matrices are independent
// and are built concurrently; the result is in feature order.
func Encode(ctx context.Context, inst *problem.Instance) (*Encoded, error) {
	enc := &Encoded{
		Features:    make([]*Matrix, inst.NumFeatures()),
		Constraints: EncodeConstraints(inst.Constraints),
		GroupSpec:   make([]int32, len(inst.GroupSpec)),
	}
	for i, q := range inst.GroupSpec {
		enc.GroupSpec[i] = int32(q)
	}
	enc.Costs, enc.Values = EncodeItems(inst.Items)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for j, f := range inst.Features {
		j, f := j, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := EncodeFeature(f.Membership)
			if err != nil {
				return fmt.Errorf("feature %d: %w", j+1, err)
			}
			enc.Features[j] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return enc, nil
}
