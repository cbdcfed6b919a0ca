package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/standardbeagle/ccsearch/internal/debug"
	"github.com/standardbeagle/ccsearch/internal/encoding"
	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
	"github.com/standardbeagle/ccsearch/internal/problem"
)

// ErrCallOrder is returned when an Adapter method is used out of sequence.
// It always indicates a programming error in the caller.
var ErrCallOrder = errors.New("engine call out of order")

type stage int

const (
	stageNew stage = iota
	stageInitializing
	stageLoaded
	stageExecuted
	stagePrepared
	stageReleased
)

var stageNames = [...]string{"new", "initializing", "loaded", "executed", "prepared", "released"}

func (s stage) String() string {
	return stageNames[s]
}

// Adapter owns one Engine and enforces the boundary protocol:
// Load, Execute, PrepareResults, Fetch... and finally Release.
// An Adapter is not safe for concurrent use.
type Adapter struct {
	eng     Engine
	logger  *zap.Logger
	stage   stage
	collLen int
}

// NewAdapter wraps eng. The adapter becomes responsible for releasing it.
func NewAdapter(eng Engine, logger *zap.Logger) *Adapter {
	return &Adapter{
		eng:    eng,
		logger: debug.Component(logger, "engine"),
	}
}

func (a *Adapter) expect(call string, allowed ...stage) error {
	for _, s := range allowed {
		if a.stage == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in stage %s", ErrCallOrder, call, a.stage)
}

// Load hands the instance to the engine: parameters, structure, cost
// tolerance, features, items and constraints, then lock-and-load.
// Once Load has issued its first call, Release must be called even if Load
// fails.
func (a *Adapter) Load(inst *problem.Instance, enc *encoding.Encoded) error {
	if err := a.expect("load", stageNew); err != nil {
		return err
	}
	if len(enc.Features) != inst.NumFeatures() {
		return fmt.Errorf("encoded %d features, instance has %d", len(enc.Features), inst.NumFeatures())
	}

	p := inst.Params
	ni := inst.NumItems()
	a.stage = stageInitializing

	a.eng.InitParms(float32(p.CollectionTolerance), float32(p.ItemCullTolerance),
		p.GroupCullMargin, p.ResultBlockSize, p.MaxResults, int(p.SearchMode))
	a.eng.InitStruct(inst.NumFeatures(), inst.Primary, enc.GroupSpec, ni,
		float32(p.MaxCost), len(enc.Constraints))
	a.eng.SetMaxCostTol(float32(p.MaxCostTolerance))

	for j, m := range enc.Features {
		a.eng.InitFeature(j, m.Cols, ni, inst.Features[j].IsPartition, m.Data, m.RowOffsets)
		a.logger.Debug("feature loaded",
			zap.Int("feature", j+1),
			zap.Int("groups", m.Cols),
			zap.Bool("partition", inst.Features[j].IsPartition))
	}

	a.eng.InitItems(enc.Costs, enc.Values)

	for i, c := range enc.Constraints {
		a.eng.SetConstraint(i, c.Kind, c.Args())
	}

	if code := a.eng.LockAndLoad(); code < 1 {
		return ccserrors.NewEngineError("lock_and_load", code)
	}
	a.stage = stageLoaded
	a.logger.Info("problem loaded",
		zap.Int("items", ni),
		zap.Int("features", inst.NumFeatures()),
		zap.Int("constraints", len(enc.Constraints)))
	return nil
}

// Estimate returns the engine's log10 estimate of the search space size
func (a *Adapter) Estimate() (float64, error) {
	if err := a.expect("estimate", stageLoaded, stageExecuted, stagePrepared); err != nil {
		return 0, err
	}
	return a.eng.LogStateSpaceEstimate(), nil
}

// Execute runs the search. It blocks until the engine returns.
func (a *Adapter) Execute(debugLevel DebugFlags) error {
	if err := a.expect("execute", stageLoaded); err != nil {
		return err
	}
	a.logger.Debug("executing search", zap.Stringer("debug", debugLevel))
	if code := a.eng.Execute(int(debugLevel)); code < 1 {
		return ccserrors.NewEngineError("execute", code)
	}
	a.stage = stageExecuted
	return nil
}

// PrepareResults re-arms the result iterator and returns the number of
// collections found and the item count of each
func (a *Adapter) PrepareResults() (count, collLen int, err error) {
	if err := a.expect("prepres", stageExecuted, stagePrepared); err != nil {
		return 0, 0, err
	}
	count = a.eng.PrepareResults()
	if count < 0 {
		return 0, 0, ccserrors.NewEngineError("prepres", count)
	}
	collLen = a.eng.CollectionLength()
	if collLen < 0 || (count > 0 && collLen == 0) {
		return 0, 0, ccserrors.NewEngineError("colllen", collLen)
	}
	a.collLen = collLen
	a.stage = stagePrepared
	a.logger.Info("results ready", zap.Int("collections", count), zap.Int("collection_size", collLen))
	return count, collLen, nil
}

// Fetch fills the page buffer with the next rows. rowOffsets gives the
// element offset of each row in rows; scores needs one slot per row.
// Returns the number of rows written, 0 once the results are exhausted.
func (a *Adapter) Fetch(rows []uint32, rowOffsets []int, scores []float32) (int, error) {
	if err := a.expect("getres", stagePrepared); err != nil {
		return 0, err
	}
	if len(scores) < len(rowOffsets) {
		return 0, fmt.Errorf("score buffer holds %d rows, page has %d", len(scores), len(rowOffsets))
	}
	for i, off := range rowOffsets {
		if off < 0 || off+a.collLen > len(rows) {
			return 0, fmt.Errorf("row %d at offset %d overruns page buffer of %d cells", i, off, len(rows))
		}
	}

	n := a.eng.GetResults(rows, rowOffsets, scores)
	if n < 0 || n > len(rowOffsets) {
		return 0, ccserrors.NewEngineError("getres", n)
	}
	return n, nil
}

// Reset discards the engine's results. The loaded problem is kept and can
// be executed again.
func (a *Adapter) Reset() error {
	if err := a.expect("reset", stageExecuted, stagePrepared); err != nil {
		return err
	}
	a.eng.Reset()
	a.stage = stageLoaded
	return nil
}

// Release frees all engine memory. It is a no-op if no call reached the
// engine yet or if the adapter was already released, so it is safe to defer
// right after construction.
func (a *Adapter) Release() {
	switch a.stage {
	case stageNew:
		a.stage = stageReleased
		return
	case stageReleased:
		return
	}
	a.eng.Release()
	a.stage = stageReleased
	a.logger.Debug("engine released")
}

// Released reports whether Release has run
func (a *Adapter) Released() bool {
	return a.stage == stageReleased
}
