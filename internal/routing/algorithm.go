// Package routing holds the pluggable route-optimization strategies and the
// registry that resolves them by name.
package routing

import (
	"couriernav/internal/model"
)

// Algorithm is the strategy contract for route optimization. Implementations
// must be deterministic for identical input.
type Algorithm interface {
	// OptimizeRoute returns a permutation of waypoints (same set, new order,
	// sequence numbers reassigned from 1) approximating a minimal-travel
	// route from start, optionally ending at end. When respectTimeWindows is
	// set, waypoints with time windows are scheduled to avoid arriving before
	// the window opens and to avoid arriving after it closes.
	OptimizeRoute(start model.Location, end *model.Location, waypoints []model.Waypoint, respectTimeWindows bool) ([]model.Waypoint, error)

	// CalculateRouteDistance sums consecutive Haversine legs across
	// start → waypoints → end (if present), in kilometers.
	CalculateRouteDistance(waypoints []model.Waypoint, start model.Location, end *model.Location) float64

	// EstimateDeliveryTime returns total travel time at the assumed average
	// speed plus per-waypoint stop durations, in minutes.
	EstimateDeliveryTime(waypoints []model.Waypoint, start model.Location, end *model.Location) int

	// Name is the stable identifier used for registry lookup.
	Name() string
}

// estimator provides the distance/time helpers shared by strategies.
type estimator struct {
	avgSpeedKmh float64
}

func (e estimator) speed() float64 {
	if e.avgSpeedKmh > 0 {
		return e.avgSpeedKmh
	}
	return model.DefaultAverageSpeedKmh
}

func (e estimator) CalculateRouteDistance(waypoints []model.Waypoint, start model.Location, end *model.Location) float64 {
	total := 0.0
	curr := start
	for i := range waypoints {
		total += curr.DistanceTo(waypoints[i].Location)
		curr = waypoints[i].Location
	}
	if end != nil {
		total += curr.DistanceTo(*end)
	}
	return total
}

func (e estimator) EstimateDeliveryTime(waypoints []model.Waypoint, start model.Location, end *model.Location) int {
	dist := e.CalculateRouteDistance(waypoints, start, end)
	minutes := dist / e.speed() * 60
	stop := 0
	for i := range waypoints {
		stop += waypoints[i].EstimatedStopDurationMinutes
	}
	return int(minutes) + stop
}
