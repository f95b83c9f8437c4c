package store

import (
	"context"

	"couriernav/internal/model"
)

// Store is the route persistence interface used by the routing service.
// UpdateRoute performs an optimistic-concurrency check: the write succeeds
// only when the stored version matches route.Version, and the stored version
// is then incremented.
type Store interface {
	CreateRoute(ctx context.Context, route model.Route) (model.Route, error)
	GetRoute(ctx context.Context, routeID string) (model.Route, error)
	UpdateRoute(ctx context.Context, route model.Route) (model.Route, error)
	DeleteRoute(ctx context.Context, routeID string) error

	// ListRoutes filters by courier and/or status; empty values match all.
	ListRoutes(ctx context.Context, courierID string, status model.RouteStatus, limit int) ([]model.Route, error)

	// FindRouteByShipment returns the non-terminal route whose waypoint set
	// carries the shipment, or ErrNotFound.
	FindRouteByShipment(ctx context.Context, shipmentID string) (model.Route, error)
}

// ErrVersionConflict is returned by UpdateRoute when the optimistic version
// check fails; callers should re-read and retry.
var ErrVersionConflict = conflictError("route version conflict")

type conflictError string

func (e conflictError) Error() string { return string(e) }
