package model

import "errors"

// Sentinel errors for the routing core. Callers match with errors.Is; the API
// layer maps them to problem responses.
var (
	// ErrNotFound is returned when a referenced route, waypoint, or courier
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a requested transition is illegal for
	// the route's current status.
	ErrInvalidState = errors.New("invalid route state")

	// ErrOptimization is returned when algorithm invocation failed, timed
	// out, or was attempted on an empty waypoint set.
	ErrOptimization = errors.New("optimization failed")

	// ErrConfiguration indicates an unusable startup configuration, e.g. no
	// routing algorithms registered. Fatal at process init.
	ErrConfiguration = errors.New("configuration error")

	// ErrExternalService indicates a transient failure of the courier
	// directory, tracking service, or mapping API.
	ErrExternalService = errors.New("external service unavailable")

	// ErrInvalidCoordinate is returned for latitudes outside [-90,90] or
	// longitudes outside [-180,180].
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
