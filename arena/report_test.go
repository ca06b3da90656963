package arena_test

import (
	"testing"

	"github.com/memkit/memsim/arena"
	"github.com/stretchr/testify/require"
)

func TestReportOrdering(t *testing.T) {
	a, err := arena.New(500)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 100, arena.StrategyFirstFit)
	require.NoError(t, err)
	_, _, err = a.Request("p2", 150, arena.StrategyFirstFit)
	require.NoError(t, err)
	require.NoError(t, a.Release("p1"))

	require.Equal(t, []arena.BlockInfo{
		{Start: 0, End: 100, Free: true},
		{Start: 100, End: 250, Owner: "p2"},
		{Start: 250, End: 500, Free: true},
	}, a.Report())
}

func TestVisitAllRegions(t *testing.T) {
	a, err := arena.New(500)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 200, arena.StrategyFirstFit)
	require.NoError(t, err)

	var visited []arena.BlockInfo
	err = a.VisitAllRegions(func(offset int, size int, owner string, free bool) error {
		visited = append(visited, arena.BlockInfo{
			Start: offset,
			End:   offset + size,
			Owner: owner,
			Free:  free,
		})
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, a.Report(), visited)
}

func TestBuildStatsString(t *testing.T) {
	a, err := arena.New(100)
	require.NoError(t, err)

	_, _, err = a.Request("p1", 40, arena.StrategyFirstFit)
	require.NoError(t, err)

	require.JSONEq(t, `{
		"TotalBytes": 100,
		"FreeBytes": 60,
		"Allocations": 1,
		"FreeRanges": 1,
		"Blocks": [
			{"Start": 0, "End": 40, "Size": 40, "State": "Occupied", "Process": "p1"},
			{"Start": 40, "End": 100, "Size": 60, "State": "Free"}
		]
	}`, a.BuildStatsString())
}

func TestBuildStatsStringEmpty(t *testing.T) {
	a, err := arena.New(100)
	require.NoError(t, err)

	require.JSONEq(t, `{
		"TotalBytes": 100,
		"FreeBytes": 100,
		"Allocations": 0,
		"FreeRanges": 1,
		"Blocks": [
			{"Start": 0, "End": 100, "Size": 100, "State": "Free"}
		]
	}`, a.BuildStatsString())
}
