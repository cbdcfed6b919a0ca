// Package engine is the boundary to the external combinatorial search
// engine. Engine is the raw call table; Adapter drives it in the only order
// the engine accepts and turns its integer status codes into errors.
package engine

import (
	"errors"
	"strings"
)

// ErrEngineUnavailable is returned by Open when the binary was built without
// the engine library
var ErrEngineUnavailable = errors.New("search engine not linked into this build (rebuild with -tags ccslib)")

// ErrEngineBusy is returned by Open while another engine handle is live.
// The library keeps one problem instance per process.
var ErrEngineBusy = errors.New("search engine already in use")

// Engine is the foreign-call table, one method per engine entry point.
// Integer returns are the engine's raw status codes; slices are only read or
// filled for the duration of the call.
//
// 2D arguments are a contiguous buffer plus element offsets of each row.
type Engine interface {
	InitParms(ctol, itol float32, ntol, resnumb int, maxres int64, smode int)
	InitStruct(nf, pf int, pfn []int32, ni int, maxCost float32, nc int)
	SetMaxCostTol(eps float32)
	InitFeature(fn, ng, ni int, isPartition bool, data []int32, rowOffsets []int)
	InitItems(costs, values []float32)
	SetConstraint(cn int, kind int32, args []int32)
	LockAndLoad() int
	LogStateSpaceEstimate() float64
	Execute(debug int) int
	PrepareResults() int
	CollectionLength() int
	// GetResults fills up to len(rowOffsets) rows of rows and scores and
	// returns how many were written: -1 on error, 0 when none are left
	GetResults(rows []uint32, rowOffsets []int, scores []float32) int
	Reset()
	Release()
}

// DebugFlags is the bit mask passed to execute; it is the -V level
type DebugFlags int

const (
	DebugConfig         DebugFlags = 1 << iota // configuration dump
	DebugStats                                 // pre and post search statistics
	DebugFeatureTables                         // per-feature group tables
	DebugSortedCombos                          // sorted group combinations
	DebugPerCall                               // per-call search info
	DebugPerCombo                              // per-combination info
	DebugMemoryManager                         // memory manager
	DebugDetailedSearch                        // detailed search trace
)

var debugFlagNames = []string{
	"config", "stats", "feature-tables", "sorted-combos",
	"per-call", "per-combo", "memory", "detailed",
}

// Has reports whether every bit of flag is set
func (d DebugFlags) Has(flag DebugFlags) bool {
	return d&flag == flag
}

func (d DebugFlags) String() string {
	if d == 0 {
		return "none"
	}
	var names []string
	for i, name := range debugFlagNames {
		if d.Has(1 << i) {
			names = append(names, name)
		}
	}
	if rest := d &^ (1<<len(debugFlagNames) - 1); rest != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, "|")
}
