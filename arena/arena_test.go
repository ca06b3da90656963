package arena_test

import (
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/memkit/memsim"
	"github.com/memkit/memsim/arena"
	"github.com/stretchr/testify/require"
)

func TestNewArena(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	var stats memsim.DetailedStatistics
	stats.Clear()
	a.AddDetailedStatistics(&stats)

	require.Equal(t, memsim.DetailedStatistics{
		Statistics: memsim.Statistics{
			ArenaCount:   1,
			ArenaBytes:   1000,
			ProcessCount: 0,
			ProcessBytes: 0,
		},
		FreeRangeCount:   1,
		ProcessSizeMin:   math.MaxInt,
		ProcessSizeMax:   0,
		FreeRangeSizeMin: 1000,
		FreeRangeSizeMax: 1000,
	}, stats)

	require.True(t, a.IsEmpty())
	require.Equal(t, 1000, a.Capacity())
	require.Equal(t, 1000, a.SumFreeSize())
	require.NoError(t, a.Validate())
}

func TestNewArenaInvalidCapacity(t *testing.T) {
	_, err := arena.New(0)
	require.ErrorIs(t, err, memsim.InvalidCapacityError)

	_, err = arena.New(-1000)
	require.ErrorIs(t, err, memsim.InvalidCapacityError)
}

func TestRequestSplitsLeftover(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	start, end, err := a.Request("p1", 100, arena.StrategyFirstFit)
	require.NoError(t, err)
	require.Equal(t, 0, start)
	require.Equal(t, 100, end)

	require.Equal(t, 900, a.SumFreeSize())
	require.Equal(t, 1, a.AllocationCount())
	require.Equal(t, 1, a.FreeRegionsCount())
	require.True(t, a.Exists("p1"))
	require.NoError(t, a.Validate())

	require.Equal(t, []arena.BlockInfo{
		{Start: 0, End: 100, Owner: "p1"},
		{Start: 100, End: 1000, Free: true},
	}, a.Report())
}

func TestRequestExactFit(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 1000, arena.StrategyFirstFit)
	require.NoError(t, err)

	require.Equal(t, 0, a.SumFreeSize())
	require.Equal(t, 0, a.FreeRegionsCount())
	require.NoError(t, a.Validate())

	require.Equal(t, []arena.BlockInfo{
		{Start: 0, End: 1000, Owner: "p1"},
	}, a.Report())
}

func TestRequestDuplicateProcess(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 100, arena.StrategyFirstFit)
	require.NoError(t, err)

	before := a.Report()

	_, _, err = a.Request("p1", 50, arena.StrategyBestFit)
	require.ErrorIs(t, err, arena.ErrDuplicateProcess)

	require.Equal(t, before, a.Report())
	require.Equal(t, 900, a.SumFreeSize())
	require.NoError(t, a.Validate())
}

func TestRequestInsufficientSpace(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 600, arena.StrategyFirstFit)
	require.NoError(t, err)

	before := a.Report()

	_, _, err = a.Request("p2", 500, arena.StrategyFirstFit)
	require.ErrorIs(t, err, arena.ErrInsufficientSpace)

	require.Equal(t, before, a.Report())
	require.Equal(t, 400, a.SumFreeSize())
	require.NoError(t, a.Validate())
}

func TestRequestFragmentedInsufficientSpace(t *testing.T) {
	// 400 free bytes total, but no single free block larger than 200
	a, err := arena.New(1000)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 200, arena.StrategyFirstFit)
	require.NoError(t, err)
	_, _, err = a.Request("p2", 200, arena.StrategyFirstFit)
	require.NoError(t, err)
	_, _, err = a.Request("p3", 200, arena.StrategyFirstFit)
	require.NoError(t, err)
	_, _, err = a.Request("p4", 400, arena.StrategyFirstFit)
	require.NoError(t, err)

	require.NoError(t, a.Release("p1"))
	require.NoError(t, a.Release("p3"))
	require.Equal(t, 400, a.SumFreeSize())
	require.Equal(t, 2, a.FreeRegionsCount())

	before := a.Report()

	_, _, err = a.Request("p5", 300, arena.StrategyFirstFit)
	require.ErrorIs(t, err, arena.ErrInsufficientSpace)

	require.Equal(t, before, a.Report())
	require.NoError(t, a.Validate())
}

func TestRequestInvalidSize(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 0, arena.StrategyFirstFit)
	require.Error(t, err)

	_, _, err = a.Request("p1", -5, arena.StrategyFirstFit)
	require.Error(t, err)

	require.Equal(t, 1000, a.SumFreeSize())
	require.NoError(t, a.Validate())
}

func TestReleaseNotFound(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	err = a.Release("p1")
	require.ErrorIs(t, err, arena.ErrProcessNotFound)
	require.NoError(t, a.Validate())
}

func TestReleaseMergesBothSides(t *testing.T) {
	a, err := arena.New(300)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 100, arena.StrategyFirstFit)
	require.NoError(t, err)
	_, _, err = a.Request("p2", 100, arena.StrategyFirstFit)
	require.NoError(t, err)
	_, _, err = a.Request("p3", 100, arena.StrategyFirstFit)
	require.NoError(t, err)

	require.NoError(t, a.Release("p1"))
	require.NoError(t, a.Release("p3"))
	require.Equal(t, 2, a.FreeRegionsCount())

	// Releasing the middle block must coalesce all three extents
	require.NoError(t, a.Release("p2"))
	require.Equal(t, 1, a.FreeRegionsCount())
	require.Equal(t, 300, a.SumFreeSize())
	require.True(t, a.IsEmpty())
	require.NoError(t, a.Validate())

	require.Equal(t, []arena.BlockInfo{
		{Start: 0, End: 300, Free: true},
	}, a.Report())
}

func TestReleaseMergesWithSuccessor(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 100, arena.StrategyFirstFit)
	require.NoError(t, err)
	_, _, err = a.Request("p2", 100, arena.StrategyFirstFit)
	require.NoError(t, err)

	// p2's successor is the trailing free block
	require.NoError(t, a.Release("p2"))
	require.Equal(t, 1, a.FreeRegionsCount())
	require.NoError(t, a.Validate())

	require.Equal(t, []arena.BlockInfo{
		{Start: 0, End: 100, Owner: "p1"},
		{Start: 100, End: 1000, Free: true},
	}, a.Report())
}

func TestReleaseReuse(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 100, arena.StrategyFirstFit)
	require.NoError(t, err)
	require.NoError(t, a.Release("p1"))
	require.False(t, a.Exists("p1"))

	// The id is reusable after release
	start, end, err := a.Request("p1", 200, arena.StrategyFirstFit)
	require.NoError(t, err)
	require.Equal(t, 0, start)
	require.Equal(t, 200, end)
	require.NoError(t, a.Validate())
}

func TestEndToEndScenario(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	start, end, err := a.Request("p1", 100, arena.StrategyBestFit)
	require.NoError(t, err)
	require.Equal(t, 0, start)
	require.Equal(t, 100, end)
	require.Equal(t, 900, a.SumFreeSize())

	start, end, err = a.Request("p2", 50, arena.StrategyFirstFit)
	require.NoError(t, err)
	require.Equal(t, 100, start)
	require.Equal(t, 150, end)
	require.Equal(t, 850, a.SumFreeSize())

	require.NoError(t, a.Release("p1"))
	require.Equal(t, 950, a.SumFreeSize())
	require.Equal(t, []arena.BlockInfo{
		{Start: 0, End: 100, Free: true},
		{Start: 100, End: 150, Owner: "p2"},
		{Start: 150, End: 1000, Free: true},
	}, a.Report())

	a.Compact()
	require.Equal(t, 950, a.SumFreeSize())
	require.Equal(t, []arena.BlockInfo{
		{Start: 0, End: 50, Owner: "p2"},
		{Start: 50, End: 1000, Free: true},
	}, a.Report())
	require.NoError(t, a.Validate())
}

func TestClear(t *testing.T) {
	a, err := arena.New(1000)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 100, arena.StrategyFirstFit)
	require.NoError(t, err)
	_, _, err = a.Request("p2", 200, arena.StrategyFirstFit)
	require.NoError(t, err)

	a.Clear()

	require.True(t, a.IsEmpty())
	require.False(t, a.Exists("p1"))
	require.Equal(t, 1000, a.SumFreeSize())
	require.Equal(t, 1, a.FreeRegionsCount())
	require.NoError(t, a.Validate())
}

func TestRandomOpsConservation(t *testing.T) {
	a, err := arena.New(4096)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	live := make([]string, 0, 64)
	strategies := []arena.Strategy{arena.StrategyFirstFit, arena.StrategyBestFit, arena.StrategyWorstFit}

	nextID := 0
	for i := 0; i < 2000; i++ {
		switch op := rng.Intn(10); {
		case op < 6:
			pid := "p" + strconv.Itoa(nextID)
			nextID++
			size := rng.Intn(256) + 1
			_, _, err := a.Request(pid, size, strategies[rng.Intn(len(strategies))])
			if err != nil {
				require.ErrorIs(t, err, arena.ErrInsufficientSpace)
			} else {
				live = append(live, pid)
			}
		case op < 9 && len(live) > 0:
			victim := rng.Intn(len(live))
			require.NoError(t, a.Release(live[victim]))
			live = append(live[:victim], live[victim+1:]...)
		default:
			a.Compact()
		}

		require.NoError(t, a.Validate())

		var stats memsim.Statistics
		stats.Clear()
		a.AddStatistics(&stats)
		require.Equal(t, a.Capacity(), stats.ProcessBytes+a.SumFreeSize())
		require.Equal(t, len(live), stats.ProcessCount)
	}
}
