//go:build cgo && ccslib

package engine

/*
#cgo LDFLAGS: -lccslib -lm
#include <stdlib.h>

extern void kopt_init_parms(float ctol, float itol, int ntol, int resnumb, long maxres, int smode);
extern void kopt_init_struct(int nf, int pf, int* pfn, int pfnn, int ni, float mc, int nc);
extern void kopt_set_maxcosttol(float tol);
extern void kopt_init_feature(int fn, int ng, int ni, int ispart, int** f);
extern void kopt_init_items(float* c, float* v);
extern void kopt_set_constraint(int cn, int t, int al, int* a);
extern int kopt_lock_and_load(void);
extern double kopt_get_log_state_space_est(void);
extern int kopt_execute(int debug);
extern int kopt_prepres(void);
extern int kopt_colllen(void);
extern int kopt_getres(int n, unsigned int** r, float* m);
extern void kopt_release(void);
extern void kopt_reset(void);
*/
import "C"

import (
	"sync/atomic"
	"unsafe"
)

// Linked reports whether the engine library is part of this build
const Linked = true

var engineOpen atomic.Bool

// Open returns a handle on the statically linked engine. Only one handle
// may be live at a time; Release frees it.
func Open() (Engine, error) {
	if !engineOpen.CompareAndSwap(false, true) {
		return nil, ErrEngineBusy
	}
	return &cEngine{}, nil
}

// cEngine passes every buffer through C memory. The engine keeps pointers to
// the feature tables and item columns until release, so those allocations
// live as long as the handle.
type cEngine struct {
	allocs []unsafe.Pointer

	// result page scratch, reused across getres calls
	resCells  unsafe.Pointer
	resRows   unsafe.Pointer
	resScores unsafe.Pointer
	resCap    int
	resCellN  int
}

func (e *cEngine) malloc(size int) unsafe.Pointer {
	if size == 0 {
		size = 1
	}
	p := C.malloc(C.size_t(size))
	e.allocs = append(e.allocs, p)
	return p
}

func (e *cEngine) intArray(vals []int32) *C.int {
	p := e.malloc(len(vals) * int(unsafe.Sizeof(C.int(0))))
	dst := unsafe.Slice((*C.int)(p), len(vals))
	for i, v := range vals {
		dst[i] = C.int(v)
	}
	return (*C.int)(p)
}

func (e *cEngine) floatArray(vals []float32) *C.float {
	p := e.malloc(len(vals) * int(unsafe.Sizeof(C.float(0))))
	dst := unsafe.Slice((*C.float)(p), len(vals))
	for i, v := range vals {
		dst[i] = C.float(v)
	}
	return (*C.float)(p)
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func (e *cEngine) InitParms(ctol, itol float32, ntol, resnumb int, maxres int64, smode int) {
	C.kopt_init_parms(C.float(ctol), C.float(itol), C.int(ntol), C.int(resnumb), C.long(maxres), C.int(smode))
}

func (e *cEngine) InitStruct(nf, pf int, pfn []int32, ni int, maxCost float32, nc int) {
	C.kopt_init_struct(C.int(nf), C.int(pf), e.intArray(pfn), C.int(len(pfn)), C.int(ni), C.float(maxCost), C.int(nc))
}

func (e *cEngine) SetMaxCostTol(eps float32) {
	C.kopt_set_maxcosttol(C.float(eps))
}

func (e *cEngine) InitFeature(fn, ng, ni int, isPartition bool, data []int32, rowOffsets []int) {
	cells := e.intArray(data)
	rows := e.malloc(len(rowOffsets) * int(unsafe.Sizeof(uintptr(0))))
	ptrs := unsafe.Slice((**C.int)(rows), len(rowOffsets))
	base := unsafe.Slice(cells, max(len(data), 1))
	for i, off := range rowOffsets {
		if off < len(data) {
			ptrs[i] = &base[off]
		} else {
			// zero-width rows still need a valid pointer
			ptrs[i] = cells
		}
	}
	C.kopt_init_feature(C.int(fn), C.int(ng), C.int(ni), cBool(isPartition), (**C.int)(rows))
}

func (e *cEngine) InitItems(costs, values []float32) {
	C.kopt_init_items(e.floatArray(costs), e.floatArray(values))
}

func (e *cEngine) SetConstraint(cn int, kind int32, args []int32) {
	C.kopt_set_constraint(C.int(cn), C.int(kind), C.int(len(args)), e.intArray(args))
}

func (e *cEngine) LockAndLoad() int {
	return int(C.kopt_lock_and_load())
}

func (e *cEngine) LogStateSpaceEstimate() float64 {
	return float64(C.kopt_get_log_state_space_est())
}

func (e *cEngine) Execute(debug int) int {
	return int(C.kopt_execute(C.int(debug)))
}

func (e *cEngine) PrepareResults() int {
	return int(C.kopt_prepres())
}

func (e *cEngine) CollectionLength() int {
	return int(C.kopt_colllen())
}

func (e *cEngine) GetResults(rows []uint32, rowOffsets []int, scores []float32) int {
	n := len(rowOffsets)
	if n == 0 {
		return 0
	}
	width := int(C.kopt_colllen())
	e.ensureResultScratch(n, width)

	cells := unsafe.Slice((*C.uint)(e.resCells), max(n*width, 1))
	ptrs := unsafe.Slice((**C.uint)(e.resRows), n)
	for i := range ptrs {
		ptrs[i] = &cells[i*width]
	}

	got := int(C.kopt_getres(C.int(n), (**C.uint)(e.resRows), (*C.float)(e.resScores)))
	if got <= 0 {
		return got
	}

	cScores := unsafe.Slice((*C.float)(e.resScores), n)
	for i := 0; i < got && i < n; i++ {
		dst := rows[rowOffsets[i] : rowOffsets[i]+width]
		for j := range dst {
			dst[j] = uint32(cells[i*width+j])
		}
		scores[i] = float32(cScores[i])
	}
	return got
}

func (e *cEngine) ensureResultScratch(n, width int) {
	if n <= e.resCap && n*width <= e.resCellN {
		return
	}
	e.freeResultScratch()
	e.resCells = C.malloc(C.size_t(max(n*width, 1) * int(unsafe.Sizeof(C.uint(0)))))
	e.resRows = C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(uintptr(0))))
	e.resScores = C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.float(0))))
	e.resCap, e.resCellN = n, n*width
}

func (e *cEngine) freeResultScratch() {
	for _, p := range []unsafe.Pointer{e.resCells, e.resRows, e.resScores} {
		if p != nil {
			C.free(p)
		}
	}
	e.resCells, e.resRows, e.resScores = nil, nil, nil
	e.resCap, e.resCellN = 0, 0
}

func (e *cEngine) Reset() {
	C.kopt_reset()
}

func (e *cEngine) Release() {
	C.kopt_release()
	for _, p := range e.allocs {
		C.free(p)
	}
	e.allocs = nil
	e.freeResultScratch()
	engineOpen.Store(false)
}
