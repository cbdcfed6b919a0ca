// Package enginetest provides an in-memory Engine for tests. It records
// every boundary call and finds collections by brute-force enumeration, so
// results are exact for the small instances tests use.
package enginetest

import (
	"math"
	"slices"
	"sort"
	"sync"
)

// Call names as recorded in Engine.Calls
const (
	CallInitParms     = "init_parms"
	CallInitStruct    = "init_struct"
	CallSetMaxCostTol = "set_maxcosttol"
	CallInitFeature   = "init_feature"
	CallInitItems     = "init_items"
	CallSetConstraint = "set_constraint"
	CallLockAndLoad   = "lock_and_load"
	CallEstimate      = "get_log_state_space_est"
	CallExecute       = "execute"
	CallPrepres       = "prepres"
	CallColllen       = "colllen"
	CallGetres        = "getres"
	CallReset         = "reset"
	CallRelease       = "release"
)

// maxItems mirrors the engine's 16-bit item index limit
const maxItems = 32767

// Collection is one result as the engine produces it
type Collection struct {
	Items []uint32
	Score float32
	Cost  float32
}

// Engine implements engine.Engine in memory. The exported knobs make
// individual calls fail.
type Engine struct {
	// LockAndLoadCode, when non-zero, is returned by LockAndLoad
	LockAndLoadCode int
	// ExecuteCode, when non-zero, is returned by Execute
	ExecuteCode int
	// GetResultsCode, when non-zero, is returned by every GetResults call
	GetResultsCode int
	// StopAfter makes GetResults report exhaustion once this many rows have
	// been returned
	StopAfter int

	mu    sync.Mutex
	calls []string

	ctol, itol  float32
	ntol        int
	resnumb     int
	maxres      int64
	smode       int
	nf, pf, ni  int
	quotas      []int32
	maxCost     float32
	maxCostTol  float32
	nc          int
	features    [][][]int32 // feature -> item -> row
	partitions  []bool
	costs       []float32
	values      []float32
	constraints [][3]int32 // kind, feature, threshold
	debug       int

	results  []Collection
	cursor   int
	released int
}

// New returns an empty engine
func New() *Engine {
	return &Engine{}
}

func (e *Engine) record(call string) {
	e.calls = append(e.calls, call)
}

// Calls returns the boundary calls made so far, in order
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

// ReleaseCount is the number of Release calls
func (e *Engine) ReleaseCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

// DebugLevel is the mask the last Execute received
func (e *Engine) DebugLevel() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debug
}

// Loaded is a snapshot of everything the initialization calls received
type Loaded struct {
	CollectionTolerance float32
	ItemCullTolerance   float32
	GroupCullMargin     int
	ResultBlockSize     int
	MaxResults          int64
	SearchMode          int
	Features            int
	Primary             int
	Items               int
	Quotas              []int32
	MaxCost             float32
	MaxCostTolerance    float32
	Constraints         [][3]int32
	Partitions          []bool
	Costs               []float32
	Values              []float32
}

// Loaded returns what the engine was initialized with
func (e *Engine) Loaded() Loaded {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Loaded{
		CollectionTolerance: e.ctol,
		ItemCullTolerance:   e.itol,
		GroupCullMargin:     e.ntol,
		ResultBlockSize:     e.resnumb,
		MaxResults:          e.maxres,
		SearchMode:          e.smode,
		Features:            e.nf,
		Primary:             e.pf,
		Items:               e.ni,
		Quotas:              slices.Clone(e.quotas),
		MaxCost:             e.maxCost,
		MaxCostTolerance:    e.maxCostTol,
		Constraints:         slices.Clone(e.constraints),
		Partitions:          slices.Clone(e.partitions),
		Costs:               slices.Clone(e.costs),
		Values:              slices.Clone(e.values),
	}
}

// Results returns the collections found by the last Execute
func (e *Engine) Results() []Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.results)
}

func (e *Engine) InitParms(ctol, itol float32, ntol, resnumb int, maxres int64, smode int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallInitParms)
	e.ctol, e.itol, e.ntol, e.resnumb, e.maxres, e.smode = ctol, itol, ntol, resnumb, maxres, smode
}

func (e *Engine) InitStruct(nf, pf int, pfn []int32, ni int, maxCost float32, nc int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallInitStruct)
	e.nf, e.pf, e.ni, e.maxCost, e.nc = nf, pf, ni, maxCost, nc
	e.quotas = slices.Clone(pfn)
	e.features = make([][][]int32, nf)
	e.partitions = make([]bool, nf)
}

func (e *Engine) SetMaxCostTol(eps float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallSetMaxCostTol)
	e.maxCostTol = max(eps, 0)
}

func (e *Engine) InitFeature(fn, ng, ni int, isPartition bool, data []int32, rowOffsets []int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallInitFeature)
	if fn < 0 || fn >= len(e.features) {
		return
	}
	rows := make([][]int32, len(rowOffsets))
	for i, off := range rowOffsets {
		rows[i] = slices.Clone(data[off : off+ng])
	}
	e.features[fn] = rows
	e.partitions[fn] = isPartition
}

func (e *Engine) InitItems(costs, values []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallInitItems)
	e.costs = slices.Clone(costs)
	e.values = slices.Clone(values)
}

func (e *Engine) SetConstraint(cn int, kind int32, args []int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallSetConstraint)
	if len(args) != 2 {
		return
	}
	e.constraints = append(e.constraints, [3]int32{kind, args[0], args[1]})
}

func (e *Engine) LockAndLoad() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallLockAndLoad)
	if e.LockAndLoadCode != 0 {
		return e.LockAndLoadCode
	}
	if e.ni > maxItems || e.ni != len(e.costs) || len(e.constraints) != e.nc {
		return -1
	}
	for _, f := range e.features {
		if len(f) != e.ni {
			return -1
		}
	}
	if e.pf < 0 || e.pf >= e.nf {
		return -1
	}
	return 1
}

func (e *Engine) LogStateSpaceEstimate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallEstimate)
	x := 0.0
	for g, q := range e.quotas {
		n := len(e.groupMembers(e.pf, g))
		if int(q) > n {
			return -1
		}
		for j := 0; j < int(q); j++ {
			x += math.Log10(float64(n-j)) - math.Log10(float64(j+1))
		}
	}
	return x
}

func (e *Engine) Execute(debug int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallExecute)
	e.debug = debug
	if e.ExecuteCode != 0 {
		return e.ExecuteCode
	}
	e.results = e.enumerate()
	e.cursor = 0
	return 1
}

func (e *Engine) PrepareResults() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallPrepres)
	e.cursor = 0
	return len(e.results)
}

func (e *Engine) CollectionLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallColllen)
	n := 0
	for _, q := range e.quotas {
		n += int(q)
	}
	return n
}

// GetResults writes rows with their indices in descending order, so callers
// must not rely on the engine sorting within a row
func (e *Engine) GetResults(rows []uint32, rowOffsets []int, scores []float32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallGetres)
	if e.GetResultsCode != 0 {
		return e.GetResultsCode
	}
	end := len(e.results)
	if e.StopAfter > 0 && e.StopAfter < end {
		end = e.StopAfter
	}
	n := 0
	for n < len(rowOffsets) && e.cursor < end {
		c := e.results[e.cursor]
		off := rowOffsets[n]
		for j, item := range c.Items {
			rows[off+len(c.Items)-1-j] = item
		}
		scores[n] = c.Score
		n++
		e.cursor++
	}
	return n
}

func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallReset)
	e.results = nil
	e.cursor = 0
}

func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallRelease)
	e.released++
	e.results = nil
	e.features = nil
}

func (e *Engine) groupMembers(feature, group int) []uint32 {
	var out []uint32
	for i, row := range e.features[feature] {
		if group < len(row) && row[group] != 0 {
			out = append(out, uint32(i))
		}
	}
	return out
}

// enumerate lists every collection that meets the quotas, the cost limit
// and the constraints, best value first
func (e *Engine) enumerate() []Collection {
	limit := e.maxCost + e.maxCostTol
	var found []Collection
	chosen := make([]uint32, 0)
	used := make(map[uint32]bool)

	var pickGroup func(g int)
	var pickItem func(g int, members []uint32, start, need int)

	pickGroup = func(g int) {
		if g == len(e.quotas) {
			items := slices.Clone(chosen)
			slices.Sort(items)
			var cost, value float32
			for _, it := range items {
				cost += e.costs[it]
				value += e.values[it]
			}
			if cost <= limit && e.satisfies(items) {
				found = append(found, Collection{Items: items, Score: value, Cost: cost})
			}
			return
		}
		pickItem(g, e.groupMembers(e.pf, g), 0, int(e.quotas[g]))
	}
	pickItem = func(g int, members []uint32, start, need int) {
		if need == 0 {
			pickGroup(g + 1)
			return
		}
		for k := start; k <= len(members)-need; k++ {
			it := members[k]
			if used[it] {
				continue
			}
			used[it] = true
			chosen = append(chosen, it)
			pickItem(g, members, k+1, need-1)
			chosen = chosen[:len(chosen)-1]
			used[it] = false
		}
	}
	pickGroup(0)

	found = dedupe(found)
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Score > found[j].Score
	})
	if e.maxres > 0 && int64(len(found)) > e.maxres {
		found = found[:e.maxres]
	}
	return found
}

func (e *Engine) satisfies(items []uint32) bool {
	for _, c := range e.constraints {
		kind, feature, threshold := c[0], int(c[1]), int(c[2])
		if feature < 0 || feature >= len(e.features) {
			return false
		}
		counts := map[int]int{}
		for _, it := range items {
			for g, v := range e.features[feature][it] {
				if v != 0 {
					counts[g]++
				}
			}
		}
		switch kind {
		case 0:
			if len(counts) < threshold {
				return false
			}
		case 1:
			for _, n := range counts {
				if n > threshold {
					return false
				}
			}
		}
	}
	return true
}

// dedupe drops collections reached through more than one group assignment
// when an item belongs to several primary groups
func dedupe(cs []Collection) []Collection {
	seen := make(map[string]bool, len(cs))
	out := cs[:0]
	for _, c := range cs {
		key := string(keyBytes(c.Items))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func keyBytes(items []uint32) []byte {
	b := make([]byte, 0, len(items)*4)
	for _, it := range items {
		b = append(b, byte(it), byte(it>>8), byte(it>>16), byte(it>>24))
	}
	return b
}
