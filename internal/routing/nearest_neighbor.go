package routing

import (
	"fmt"
	"time"

	"couriernav/internal/model"
)

// NearestNeighborName is the registry identifier for the default strategy.
const NearestNeighborName = "Nearest Neighbor"

// NearestNeighbor is the reference strategy: starting from the start
// location, repeatedly travel to the closest unvisited waypoint. O(n²) in
// waypoint count, which is fine for realistic route sizes (tens of stops).
// Ties are broken by original input order, so output is deterministic.
type NearestNeighbor struct {
	estimator
}

// NewNearestNeighbor constructs the strategy. avgSpeedKmh <= 0 falls back to
// the model default (30 km/h).
func NewNearestNeighbor(avgSpeedKmh float64) *NearestNeighbor {
	return &NearestNeighbor{estimator{avgSpeedKmh: avgSpeedKmh}}
}

func (a *NearestNeighbor) Name() string { return NearestNeighborName }

func (a *NearestNeighbor) OptimizeRoute(start model.Location, end *model.Location, waypoints []model.Waypoint, respectTimeWindows bool) ([]model.Waypoint, error) {
	if len(waypoints) == 0 {
		return nil, fmt.Errorf("%w: no waypoints to optimize", model.ErrOptimization)
	}
	for i := range waypoints {
		if err := waypoints[i].Location.Validate(); err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
	}

	ordered := make([]model.Waypoint, 0, len(waypoints))
	visited := make([]bool, len(waypoints))
	curr := start

	// Relative clock for time-window checks, anchored at the earliest window
	// start so ordering does not depend on wall-clock time.
	var clock time.Time
	useWindows := respectTimeWindows && anchorTime(waypoints, &clock)

	for len(ordered) < len(waypoints) {
		next := a.pickNext(curr, waypoints, visited, useWindows, clock)
		visited[next] = true
		wp := waypoints[next]
		if useWindows {
			clock = clock.Add(travelDuration(curr.DistanceTo(wp.Location), a.speed()))
			if wp.TimeWindowStart != nil && clock.Before(*wp.TimeWindowStart) {
				// wait for the window to open
				clock = *wp.TimeWindowStart
			}
			clock = clock.Add(time.Duration(wp.EstimatedStopDurationMinutes) * time.Minute)
		}
		wp.Sequence = len(ordered) + 1
		ordered = append(ordered, wp)
		curr = wp.Location
	}
	return ordered, nil
}

// pickNext selects the nearest unvisited waypoint. With windows enabled,
// waypoints whose window would still be open on arrival are preferred; if
// none qualifies, the earliest-closing window wins. Input order breaks ties.
func (a *NearestNeighbor) pickNext(curr model.Location, waypoints []model.Waypoint, visited []bool, useWindows bool, clock time.Time) int {
	best := -1
	bestDist := 0.0
	bestFeasible := false
	var bestClose time.Time

	for i := range waypoints {
		if visited[i] {
			continue
		}
		d := curr.DistanceTo(waypoints[i].Location)
		if !useWindows {
			if best == -1 || d < bestDist {
				best, bestDist = i, d
			}
			continue
		}
		arrival := clock.Add(travelDuration(d, a.speed()))
		feasible := waypoints[i].TimeWindowEnd == nil || !arrival.After(*waypoints[i].TimeWindowEnd)
		closeAt := farFuture
		if waypoints[i].TimeWindowEnd != nil {
			closeAt = *waypoints[i].TimeWindowEnd
		}
		switch {
		case best == -1:
		case feasible && !bestFeasible:
		case feasible == bestFeasible && feasible && d < bestDist:
		case feasible == bestFeasible && !feasible && closeAt.Before(bestClose):
		default:
			continue
		}
		best, bestDist, bestFeasible, bestClose = i, d, feasible, closeAt
	}
	return best
}

var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

// anchorTime sets clock to the earliest time-window start among waypoints and
// reports whether any window exists at all.
func anchorTime(waypoints []model.Waypoint, clock *time.Time) bool {
	found := false
	for i := range waypoints {
		ws, we := waypoints[i].TimeWindowStart, waypoints[i].TimeWindowEnd
		for _, t := range []*time.Time{ws, we} {
			if t == nil {
				continue
			}
			if !found || t.Before(*clock) {
				*clock = *t
				found = true
			}
		}
	}
	return found
}

func travelDuration(distKm, speedKmh float64) time.Duration {
	return time.Duration(distKm / speedKmh * float64(time.Hour))
}
