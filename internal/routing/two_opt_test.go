package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couriernav/internal/model"
)

func TestTwoOptImprovesCrossedTour(t *testing.T) {
	to := NewTwoOpt(30, 5)
	nn := NewNearestNeighbor(30)
	start := model.Location{Latitude: 0, Longitude: 0}

	// A layout where greedy NN zig-zags; 2-opt should not do worse.
	wps := []model.Waypoint{
		wpAt("a", 0.0, 1.0),
		wpAt("b", 1.0, 0.1),
		wpAt("c", 0.1, 2.0),
		wpAt("d", 1.1, 0.9),
	}

	nnOut, err := nn.OptimizeRoute(start, nil, wps, false)
	require.NoError(t, err)
	toOut, err := to.OptimizeRoute(start, nil, wps, false)
	require.NoError(t, err)

	nnDist := nn.CalculateRouteDistance(nnOut, start, nil)
	toDist := to.CalculateRouteDistance(toOut, start, nil)
	assert.LessOrEqual(t, toDist, nnDist+1e-9)
	require.Len(t, toOut, len(wps))
	for i, w := range toOut {
		assert.Equal(t, i+1, w.Sequence)
	}
}

func TestTwoOptPreservesSet(t *testing.T) {
	to := NewTwoOpt(30, 3)
	start := model.Location{Latitude: 10, Longitude: 10}
	wps := []model.Waypoint{
		wpAt("w1", 10.1, 10.0), wpAt("w2", 10.0, 10.2),
		wpAt("w3", 9.9, 10.1), wpAt("w4", 10.2, 10.2), wpAt("w5", 9.8, 9.9),
	}
	out, err := to.OptimizeRoute(start, nil, wps, false)
	require.NoError(t, err)
	require.Len(t, out, len(wps))
	seen := map[string]bool{}
	for _, w := range out {
		seen[w.ID] = true
	}
	assert.Len(t, seen, len(wps))
}

func TestTwoOptEmptyInput(t *testing.T) {
	to := NewTwoOpt(30, 3)
	_, err := to.OptimizeRoute(model.Location{}, nil, nil, false)
	require.ErrorIs(t, err, model.ErrOptimization)
}
