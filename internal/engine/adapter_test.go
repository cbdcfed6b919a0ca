package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/ccsearch/internal/encoding"
	"github.com/standardbeagle/ccsearch/internal/engine"
	"github.com/standardbeagle/ccsearch/internal/engine/enginetest"
	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
	"github.com/standardbeagle/ccsearch/internal/input"
	"github.com/standardbeagle/ccsearch/internal/problem"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const fourItems = `
a,10,5,1,1
b,8,4,1,2
c,6,3,2,1
d,4,2,2,2
`

func buildInstance(t *testing.T, data string, spec problem.Spec, params problem.Params) (*problem.Instance, *encoding.Encoded) {
	t.Helper()
	table, err := input.Parse(strings.NewReader(data), input.Options{Delimiter: ','})
	require.NoError(t, err)
	inst, err := problem.Build(table, spec, params)
	require.NoError(t, err)
	enc, err := encoding.Encode(context.Background(), inst)
	require.NoError(t, err)
	return inst, enc
}

func defaultParams() problem.Params {
	return problem.Params{
		MaxCost:             100,
		MaxCostTolerance:    0.01,
		CollectionTolerance: 0.2,
		ItemCullTolerance:   0.5,
		GroupCullMargin:     1,
		ResultBlockSize:     10000,
		MaxResults:          10000,
		SearchMode:          problem.FewestToMostByValue,
	}
}

func loadedAdapter(t *testing.T, eng *enginetest.Engine) *engine.Adapter {
	t.Helper()
	spec := problem.Spec{
		Primary:     1,
		GroupSpec:   []int{2, 1},
		Partitions:  []int{1},
		Constraints: []problem.Constraint{{Kind: problem.MinGroups, Feature: 2, Threshold: 2}},
	}
	inst, enc := buildInstance(t, fourItems, spec, defaultParams())
	a := engine.NewAdapter(eng, nil)
	require.NoError(t, a.Load(inst, enc))
	return a
}

func TestAdapter_CallOrder(t *testing.T) {
	eng := enginetest.New()
	a := loadedAdapter(t, eng)

	require.NoError(t, a.Execute(engine.DebugStats))
	count, collLen, err := a.PrepareResults()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 3, collLen)

	rows := make([]uint32, count*collLen)
	offsets := []int{0, collLen}
	scores := make([]float32, count)
	n, err := a.Fetch(rows, offsets, scores)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a.Release()
	a.Release()

	assert.Equal(t, []string{
		enginetest.CallInitParms,
		enginetest.CallInitStruct,
		enginetest.CallSetMaxCostTol,
		enginetest.CallInitFeature,
		enginetest.CallInitFeature,
		enginetest.CallInitItems,
		enginetest.CallSetConstraint,
		enginetest.CallLockAndLoad,
		enginetest.CallExecute,
		enginetest.CallPrepres,
		enginetest.CallColllen,
		enginetest.CallGetres,
		enginetest.CallRelease,
	}, eng.Calls())
	assert.Equal(t, 1, eng.ReleaseCount())
	assert.Equal(t, int(engine.DebugStats), eng.DebugLevel())
}

func TestAdapter_LoadPassesInstance(t *testing.T) {
	eng := enginetest.New()
	a := loadedAdapter(t, eng)
	defer a.Release()

	got := eng.Loaded()
	assert.Equal(t, float32(0.2), got.CollectionTolerance)
	assert.Equal(t, float32(0.5), got.ItemCullTolerance)
	assert.Equal(t, 1, got.GroupCullMargin)
	assert.Equal(t, 10000, got.ResultBlockSize)
	assert.Equal(t, int64(10000), got.MaxResults)
	assert.Equal(t, 1, got.SearchMode)
	assert.Equal(t, 2, got.Features)
	assert.Equal(t, 0, got.Primary)
	assert.Equal(t, 4, got.Items)
	assert.Equal(t, []int32{2, 1}, got.Quotas)
	assert.Equal(t, float32(100), got.MaxCost)
	assert.Equal(t, float32(0.01), got.MaxCostTolerance)
	assert.Equal(t, [][3]int32{{0, 1, 2}}, got.Constraints)
	assert.Equal(t, []bool{true, false}, got.Partitions)
	assert.Equal(t, []float32{5, 4, 3, 2}, got.Costs)
	assert.Equal(t, []float32{10, 8, 6, 4}, got.Values)
}

func TestAdapter_Estimate(t *testing.T) {
	eng := enginetest.New()
	a := engine.NewAdapter(eng, nil)
	defer a.Release()

	_, err := a.Estimate()
	assert.ErrorIs(t, err, engine.ErrCallOrder)

	spec := problem.Spec{Primary: 1, GroupSpec: []int{1, 1}}
	inst, enc := buildInstance(t, fourItems, spec, defaultParams())
	require.NoError(t, a.Load(inst, enc))

	est, err := a.Estimate()
	require.NoError(t, err)
	// C(2,1) * C(2,1) = 4
	assert.InDelta(t, 0.60206, est, 1e-4)
	assert.InDelta(t, inst.LogStateSpace(), est, 1e-9)
}

func TestAdapter_OutOfOrder(t *testing.T) {
	eng := enginetest.New()
	a := engine.NewAdapter(eng, nil)

	assert.ErrorIs(t, a.Execute(0), engine.ErrCallOrder)
	_, _, err := a.PrepareResults()
	assert.ErrorIs(t, err, engine.ErrCallOrder)
	_, err = a.Fetch(nil, nil, nil)
	assert.ErrorIs(t, err, engine.ErrCallOrder)
	assert.ErrorIs(t, a.Reset(), engine.ErrCallOrder)

	a.Release()
	assert.True(t, a.Released())
	assert.Empty(t, eng.Calls(), "release before any init call must not reach the engine")

	inst, enc := buildInstance(t, fourItems, problem.Spec{Primary: 1, GroupSpec: []int{1, 1}}, defaultParams())
	assert.ErrorIs(t, a.Load(inst, enc), engine.ErrCallOrder)
}

func TestAdapter_LockAndLoadFailure(t *testing.T) {
	eng := enginetest.New()
	eng.LockAndLoadCode = -1
	a := engine.NewAdapter(eng, nil)

	inst, enc := buildInstance(t, fourItems, problem.Spec{Primary: 1, GroupSpec: []int{1, 1}}, defaultParams())
	err := a.Load(inst, enc)

	var engErr *ccserrors.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, "lock_and_load", engErr.Call)
	assert.Equal(t, -1, engErr.Code)

	a.Release()
	assert.Equal(t, 1, eng.ReleaseCount())
}

func TestAdapter_ExecuteFailure(t *testing.T) {
	eng := enginetest.New()
	eng.ExecuteCode = -2
	a := loadedAdapter(t, eng)

	err := a.Execute(0)
	var engErr *ccserrors.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, "execute", engErr.Call)

	a.Release()
	assert.Equal(t, 1, eng.ReleaseCount())
}

func TestAdapter_FetchFailure(t *testing.T) {
	eng := enginetest.New()
	eng.GetResultsCode = -1
	a := loadedAdapter(t, eng)
	defer a.Release()

	require.NoError(t, a.Execute(0))
	_, collLen, err := a.PrepareResults()
	require.NoError(t, err)

	_, err = a.Fetch(make([]uint32, collLen), []int{0}, make([]float32, 1))
	var engErr *ccserrors.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, "getres", engErr.Call)
}

func TestAdapter_FetchRejectsShortBuffers(t *testing.T) {
	eng := enginetest.New()
	a := loadedAdapter(t, eng)
	defer a.Release()

	require.NoError(t, a.Execute(0))
	_, collLen, err := a.PrepareResults()
	require.NoError(t, err)

	_, err = a.Fetch(make([]uint32, collLen), []int{0, collLen}, make([]float32, 2))
	assert.ErrorContains(t, err, "overruns page buffer")

	_, err = a.Fetch(make([]uint32, 2*collLen), []int{0, collLen}, make([]float32, 1))
	assert.ErrorContains(t, err, "score buffer")
}

func TestAdapter_ResetAllowsRerun(t *testing.T) {
	eng := enginetest.New()
	a := loadedAdapter(t, eng)
	defer a.Release()

	require.NoError(t, a.Execute(0))
	require.NoError(t, a.Reset())
	assert.Empty(t, eng.Results())

	require.NoError(t, a.Execute(0))
	count, _, err := a.PrepareResults()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NotContains(t, eng.Calls(), enginetest.CallRelease)
}

func TestDebugFlags(t *testing.T) {
	assert.Equal(t, "none", engine.DebugFlags(0).String())
	assert.Equal(t, "config|stats", (engine.DebugConfig | engine.DebugStats).String())
	assert.Equal(t, "detailed|unknown", engine.DebugFlags(128+256).String())
	assert.True(t, engine.DebugFlags(255).Has(engine.DebugMemoryManager))
	assert.False(t, engine.DebugFlags(1).Has(engine.DebugStats))
}

func TestOpen_WithoutLibrary(t *testing.T) {
	eng, err := engine.Open()
	if err == nil {
		// built with the engine library
		eng.Release()
		t.Skip("engine library linked")
	}
	assert.ErrorIs(t, err, engine.ErrEngineUnavailable)
}
