package model

import "sort"

// SortWaypoints orders the waypoint slice by sequence. Stable so that equal
// sequences (which should not occur) keep insertion order.
func (r *Route) SortWaypoints() {
	sort.SliceStable(r.Waypoints, func(i, j int) bool {
		return r.Waypoints[i].Sequence < r.Waypoints[j].Sequence
	})
}

// WaypointByShipment returns the index of the waypoint carrying the shipment,
// or -1 when absent.
func (r *Route) WaypointByShipment(shipmentID string) int {
	for i := range r.Waypoints {
		if r.Waypoints[i].ShipmentID == shipmentID {
			return i
		}
	}
	return -1
}

// Recalculate refreshes the derived TotalDistanceKm and
// EstimatedDurationMinutes from the waypoint set, walking start location →
// waypoints in sequence order → end location. Idempotent for an unchanged
// waypoint list. A path with fewer than two points yields zero distance and
// duration.
func (r *Route) Recalculate(avgSpeedKmh float64) {
	r.SortWaypoints()
	path := make([]Location, 0, len(r.Waypoints)+2)
	if r.StartLocation != nil {
		path = append(path, *r.StartLocation)
	}
	for i := range r.Waypoints {
		path = append(path, r.Waypoints[i].Location)
	}
	if r.EndLocation != nil {
		path = append(path, *r.EndLocation)
	}
	if len(path) < 2 {
		r.TotalDistanceKm = 0
		r.EstimatedDurationMinutes = 0
		return
	}
	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		total += path[i].DistanceTo(path[i+1])
	}
	r.TotalDistanceKm = total

	if avgSpeedKmh <= 0 {
		avgSpeedKmh = DefaultAverageSpeedKmh
	}
	minutes := total / avgSpeedKmh * 60
	stop := 0
	for i := range r.Waypoints {
		stop += r.Waypoints[i].EstimatedStopDurationMinutes
	}
	r.EstimatedDurationMinutes = int(minutes) + stop
}

// DefaultAverageSpeedKmh is the assumed urban courier travel speed used when
// no override is configured.
const DefaultAverageSpeedKmh = 30.0
