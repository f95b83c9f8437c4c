package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couriernav/internal/model"
)

func wpAt(id string, lat, lng float64) model.Waypoint {
	return model.Waypoint{
		ID:       id,
		Type:     model.WaypointDelivery,
		Status:   model.WaypointPending,
		Location: model.Location{Latitude: lat, Longitude: lng},
	}
}

func TestNearestNeighborOrdering(t *testing.T) {
	nn := NewNearestNeighbor(30)
	start := model.Location{Latitude: 0, Longitude: 0}
	wps := []model.Waypoint{wpAt("a", 0, 5), wpAt("b", 0, 1), wpAt("c", 0, 3)}

	out, err := nn.OptimizeRoute(start, nil, wps, false)
	require.NoError(t, err)
	require.Len(t, out, 3)
	// strictly increasing distance from start, no backtracking
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
	assert.Equal(t, "a", out[2].ID)
	for i, w := range out {
		assert.Equal(t, i+1, w.Sequence)
	}
}

func TestNearestNeighborPreservesSet(t *testing.T) {
	nn := NewNearestNeighbor(30)
	start := model.Location{Latitude: 52.52, Longitude: 13.405}
	wps := []model.Waypoint{
		wpAt("w1", 52.50, 13.40), wpAt("w2", 52.53, 13.42),
		wpAt("w3", 52.49, 13.38), wpAt("w4", 52.55, 13.45),
	}
	out, err := nn.OptimizeRoute(start, nil, wps, false)
	require.NoError(t, err)
	require.Len(t, out, len(wps))

	seen := map[string]bool{}
	for _, w := range out {
		seen[w.ID] = true
	}
	for _, w := range wps {
		assert.True(t, seen[w.ID], "waypoint %s missing from optimized order", w.ID)
	}
}

func TestNearestNeighborTieBreakByInputOrder(t *testing.T) {
	nn := NewNearestNeighbor(30)
	start := model.Location{Latitude: 0, Longitude: 0}
	// Two equidistant waypoints: input order wins.
	wps := []model.Waypoint{wpAt("north", 1, 0), wpAt("south", -1, 0)}
	out, err := nn.OptimizeRoute(start, nil, wps, false)
	require.NoError(t, err)
	assert.Equal(t, "north", out[0].ID)
}

func TestNearestNeighborEmptyInput(t *testing.T) {
	nn := NewNearestNeighbor(30)
	_, err := nn.OptimizeRoute(model.Location{}, nil, nil, false)
	require.ErrorIs(t, err, model.ErrOptimization)
}

func TestNearestNeighborInvalidCoordinate(t *testing.T) {
	nn := NewNearestNeighbor(30)
	wps := []model.Waypoint{wpAt("bad", 95, 0)}
	_, err := nn.OptimizeRoute(model.Location{}, nil, wps, false)
	require.ErrorIs(t, err, model.ErrInvalidCoordinate)
}

func TestNearestNeighborRespectsTimeWindows(t *testing.T) {
	nn := NewNearestNeighbor(30)
	start := model.Location{Latitude: 0, Longitude: 0}

	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	nearClose := base.Add(8 * time.Minute)
	farClose := base.Add(5 * time.Minute)

	// Both windows will be missed regardless of order, so the optimizer
	// triages by earliest deadline: "far" closes first and is served first
	// even though "near" is closer.
	near := wpAt("near", 0, 0.05)
	near.TimeWindowStart = &base
	near.TimeWindowEnd = &nearClose
	far := wpAt("far", 0, 0.2)
	far.TimeWindowStart = &base
	far.TimeWindowEnd = &farClose

	out, err := nn.OptimizeRoute(start, nil, []model.Waypoint{near, far}, true)
	require.NoError(t, err)
	assert.Equal(t, "far", out[0].ID)
	assert.Equal(t, "near", out[1].ID)
}

func TestCalculateRouteDistanceTwoStops(t *testing.T) {
	nn := NewNearestNeighbor(30)
	start := model.Location{Latitude: 0, Longitude: 0}
	wps := []model.Waypoint{wpAt("a", 0, 1), wpAt("b", 0, 2)}
	d := nn.CalculateRouteDistance(wps, start, nil)
	assert.InDelta(t, 222.4, d, 1)
}

func TestEstimateDeliveryTime(t *testing.T) {
	nn := NewNearestNeighbor(30)
	start := model.Location{Latitude: 0, Longitude: 0}
	a := wpAt("a", 0, 1)
	a.EstimatedStopDurationMinutes = 10
	b := wpAt("b", 0, 2)
	b.EstimatedStopDurationMinutes = 5

	wps := []model.Waypoint{a, b}
	got := nn.EstimateDeliveryTime(wps, start, nil)
	travel := int(nn.CalculateRouteDistance(wps, start, nil) / 30 * 60)
	assert.Equal(t, travel+15, got)
}
