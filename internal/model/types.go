package model

import "time"

// WaypointType classifies a stop on a route.
type WaypointType string

const (
	WaypointStart    WaypointType = "START"
	WaypointPickup   WaypointType = "PICKUP"
	WaypointDelivery WaypointType = "DELIVERY"
	WaypointReturn   WaypointType = "RETURN"
	WaypointStop     WaypointType = "STOP"
	WaypointEnd      WaypointType = "END"
)

// WaypointStatus tracks courier progress through a stop.
type WaypointStatus string

const (
	WaypointPending   WaypointStatus = "PENDING"
	WaypointEnRoute   WaypointStatus = "EN_ROUTE"
	WaypointArrived   WaypointStatus = "ARRIVED"
	WaypointCompleted WaypointStatus = "COMPLETED"
	WaypointSkipped   WaypointStatus = "SKIPPED"
	WaypointFailed    WaypointStatus = "FAILED"
)

// RouteStatus is the route lifecycle state.
type RouteStatus string

const (
	RouteCreated    RouteStatus = "CREATED"
	RouteAssigned   RouteStatus = "ASSIGNED"
	RouteOptimizing RouteStatus = "OPTIMIZING"
	RouteOptimized  RouteStatus = "OPTIMIZED"
	RouteInProgress RouteStatus = "IN_PROGRESS"
	RouteCompleted  RouteStatus = "COMPLETED"
	RouteCancelled  RouteStatus = "CANCELLED"
	RouteDelayed    RouteStatus = "DELAYED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s RouteStatus) Terminal() bool {
	return s == RouteCompleted || s == RouteCancelled
}

// Waypoint is a single stop on a route. The owning Route holds waypoints by
// value; there is no back-pointer — the service layer maintains a reverse
// shipment index for "which route carries shipment X" queries.
type Waypoint struct {
	ID       string         `json:"id"`
	Sequence int            `json:"sequence"`
	Type     WaypointType   `json:"type"`
	Status   WaypointStatus `json:"status"`
	Location Location       `json:"location"`

	ShipmentID string `json:"shipmentId,omitempty"`
	PackageID  string `json:"packageId,omitempty"`
	OrderID    string `json:"orderId,omitempty"`
	CustomerID string `json:"customerId,omitempty"`

	ContactName  string `json:"contactName,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
	Instructions string `json:"instructions,omitempty"`

	TimeWindowStart *time.Time `json:"timeWindowStart,omitempty"`
	TimeWindowEnd   *time.Time `json:"timeWindowEnd,omitempty"`

	EstimatedArrivalTime *time.Time `json:"estimatedArrivalTime,omitempty"`
	ActualArrivalTime    *time.Time `json:"actualArrivalTime,omitempty"`

	EstimatedStopDurationMinutes int `json:"estimatedStopDurationMinutes,omitempty"`
	ActualStopDurationMinutes    int `json:"actualStopDurationMinutes,omitempty"`
}

// IsDelivery reports whether the waypoint is a delivery stop.
func (w Waypoint) IsDelivery() bool { return w.Type == WaypointDelivery }

// Route is an ordered sequence of waypoints assigned to a courier/vehicle.
// TotalDistanceKm and EstimatedDurationMinutes are derived; Recalculate must
// run after any waypoint mutation.
type Route struct {
	ID        string      `json:"id"`
	Version   int         `json:"version"`
	CourierID string      `json:"courierId,omitempty"`
	VehicleID string      `json:"vehicleId,omitempty"`
	Status    RouteStatus `json:"status"`

	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	ActualStartTime *time.Time `json:"actualStartTime,omitempty"`
	ActualEndTime   *time.Time `json:"actualEndTime,omitempty"`

	StartLocation *Location `json:"startLocation,omitempty"`
	EndLocation   *Location `json:"endLocation,omitempty"`

	TotalDistanceKm          float64 `json:"totalDistanceKm"`
	EstimatedDurationMinutes int     `json:"estimatedDurationMinutes"`

	Waypoints []Waypoint `json:"waypoints"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
