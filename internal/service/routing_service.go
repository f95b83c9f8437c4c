// Package service orchestrates route lifecycle, optimization, and the
// boundary integrations around them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"couriernav/internal/cache"
	"couriernav/internal/config"
	"couriernav/internal/external"
	"couriernav/internal/metrics"
	"couriernav/internal/model"
	"couriernav/internal/routing"
	"couriernav/internal/store"
)

// EventPublisher receives route lifecycle events for streaming to clients.
type EventPublisher interface {
	PublishRouteEvent(routeID, eventType string, data map[string]any)
}

// Options carries the collaborators and tunables for the routing service.
// Couriers, Tracking, Mapping, Cache, and Events may be nil; the service
// degrades gracefully without them.
type Options struct {
	Store    store.Store
	Registry *routing.Registry
	Cache    cache.Cache
	Couriers external.CourierDirectory
	Tracking external.TrackingService
	Mapping  external.MappingService
	Events   EventPublisher

	AvgSpeedKmh     float64
	StartPolicy     config.StartPolicy
	OptimizeTimeout time.Duration
}

// Routing is the route-lifecycle and optimization engine. Mutations of the
// same route are serialized through a per-route lock; the store's version
// check catches races across processes.
type Routing struct {
	store    store.Store
	registry *routing.Registry
	cache    cache.Cache
	couriers external.CourierDirectory
	tracking external.TrackingService
	mapping  external.MappingService
	events   EventPublisher

	avgSpeedKmh     float64
	startPolicy     config.StartPolicy
	optimizeTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRouting(opts Options) (*Routing, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: routing service requires a store", model.ErrConfiguration)
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("%w: routing service requires an algorithm registry", model.ErrConfiguration)
	}
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.AvgSpeedKmh <= 0 {
		opts.AvgSpeedKmh = model.DefaultAverageSpeedKmh
	}
	if opts.StartPolicy == "" {
		opts.StartPolicy = config.StartFirstWaypoint
	}
	if opts.OptimizeTimeout <= 0 {
		opts.OptimizeTimeout = 10 * time.Second
	}
	return &Routing{
		store:           opts.Store,
		registry:        opts.Registry,
		cache:           opts.Cache,
		couriers:        opts.Couriers,
		tracking:        opts.Tracking,
		mapping:         opts.Mapping,
		events:          opts.Events,
		avgSpeedKmh:     opts.AvgSpeedKmh,
		startPolicy:     opts.StartPolicy,
		optimizeTimeout: opts.OptimizeTimeout,
		locks:           map[string]*sync.Mutex{},
	}, nil
}

// routeLock returns the mutex serializing mutations of one route.
func (s *Routing) routeLock(routeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[routeID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[routeID] = l
	}
	return l
}

// CreateRouteInput is the payload for CreateRoute.
type CreateRouteInput struct {
	CourierID     string
	VehicleID     string
	Waypoints     []model.Waypoint
	StartTime     *time.Time
	StartLocation *model.Location
	EndLocation   *model.Location
}

// CreateRoute constructs a route in CREATED status. Waypoint sequences are
// assigned in input order unless the caller pre-sequenced every waypoint.
func (s *Routing) CreateRoute(ctx context.Context, in CreateRouteInput) (model.Route, error) {
	for i := range in.Waypoints {
		if err := in.Waypoints[i].Location.Validate(); err != nil {
			return model.Route{}, fmt.Errorf("waypoint %d: %w", i, err)
		}
		if in.Waypoints[i].Status == "" {
			in.Waypoints[i].Status = model.WaypointPending
		}
	}
	if in.StartLocation != nil {
		if err := in.StartLocation.Validate(); err != nil {
			return model.Route{}, err
		}
	}
	if in.EndLocation != nil {
		if err := in.EndLocation.Validate(); err != nil {
			return model.Route{}, err
		}
	}
	if !preSequenced(in.Waypoints) {
		for i := range in.Waypoints {
			in.Waypoints[i].Sequence = i + 1
		}
	}

	r := model.Route{
		CourierID:     in.CourierID,
		VehicleID:     in.VehicleID,
		Status:        model.RouteCreated,
		StartTime:     in.StartTime,
		StartLocation: in.StartLocation,
		EndLocation:   in.EndLocation,
		Waypoints:     in.Waypoints,
	}
	r.Recalculate(s.avgSpeedKmh)

	created, err := s.store.CreateRoute(ctx, r)
	if err != nil {
		return model.Route{}, err
	}
	s.cacheRoute(ctx, created)
	s.publish(created.ID, "route.created", map[string]any{"status": string(created.Status)})
	metrics.RouteTransitions.WithLabelValues(string(model.RouteCreated)).Inc()
	return created, nil
}

// GetRoute reads through the cache.
func (s *Routing) GetRoute(ctx context.Context, routeID string) (model.Route, error) {
	if r, ok := s.cache.GetCachedRoute(ctx, routeID); ok {
		return r, nil
	}
	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	s.cacheRoute(ctx, r)
	return r, nil
}

func (s *Routing) ListRoutes(ctx context.Context, courierID string, status model.RouteStatus, limit int) ([]model.Route, error) {
	return s.store.ListRoutes(ctx, courierID, status, limit)
}

// AssignCourier binds a courier and transitions CREATED→ASSIGNED. Assigning
// the same courier again is idempotent; reassigning a route that is already
// IN_PROGRESS is rejected.
func (s *Routing) AssignCourier(ctx context.Context, routeID, courierID string) (model.Route, error) {
	l := s.routeLock(routeID)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	if r.CourierID == courierID && r.Status != model.RouteCreated {
		return r, nil
	}
	if r.Status.Terminal() {
		return model.Route{}, fmt.Errorf("%w: cannot assign courier on %s route", model.ErrInvalidState, r.Status)
	}
	if r.Status == model.RouteInProgress {
		return model.Route{}, fmt.Errorf("%w: route %s is in progress, reassignment rejected", model.ErrInvalidState, routeID)
	}

	if s.couriers != nil {
		active, err := s.couriers.IsCourierActive(ctx, courierID)
		if err != nil {
			// directory outage must not block assignment
			log.Printf("service: courier directory unavailable, assigning %s unverified: %v", courierID, err)
		} else if !active {
			return model.Route{}, fmt.Errorf("%w: courier %s is not active", model.ErrNotFound, courierID)
		}
	}

	r.CourierID = courierID
	if r.Status == model.RouteCreated {
		r.Status = model.RouteAssigned
	}
	return s.saveTransition(ctx, r, "route.assigned")
}

// OptimizeRoute runs the selected strategy over the route's waypoints,
// reorders them, refreshes derived metrics, and lands in OPTIMIZED status.
// algorithmName may be empty for the configured default.
func (s *Routing) OptimizeRoute(ctx context.Context, routeID, algorithmName string, respectTimeWindows bool) (model.Route, error) {
	l := s.routeLock(routeID)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	if len(r.Waypoints) == 0 {
		return model.Route{}, fmt.Errorf("%w: route %s has no waypoints", model.ErrOptimization, routeID)
	}
	switch r.Status {
	case model.RouteCreated, model.RouteAssigned, model.RouteOptimized:
	default:
		return model.Route{}, fmt.Errorf("%w: cannot optimize route in %s", model.ErrInvalidState, r.Status)
	}

	prev := r.Status
	r.Status = model.RouteOptimizing
	r, err = s.store.UpdateRoute(ctx, r)
	if err != nil {
		return model.Route{}, err
	}
	metrics.RouteTransitions.WithLabelValues(string(model.RouteOptimizing)).Inc()

	algo := s.registry.Default()
	if algorithmName != "" {
		algo = s.registry.Get(algorithmName)
	}
	start := s.optimizationStart(ctx, r)

	ordered, err := s.runWithTimeout(ctx, algo, start, r.EndLocation, r.Waypoints, respectTimeWindows)
	if err != nil {
		metrics.Optimizations.WithLabelValues(algo.Name(), "error").Inc()
		// roll the status back so the route does not wedge in OPTIMIZING
		r.Status = prev
		if _, rbErr := s.store.UpdateRoute(ctx, r); rbErr != nil {
			log.Printf("service: rollback of route %s after failed optimization: %v", routeID, rbErr)
		}
		s.evictRoute(ctx, routeID)
		return model.Route{}, err
	}

	r.Waypoints = ordered
	r.Status = model.RouteOptimized
	r.Recalculate(s.avgSpeedKmh)
	updated, err := s.saveTransition(ctx, r, "route.optimized")
	if err != nil {
		return model.Route{}, err
	}
	metrics.Optimizations.WithLabelValues(algo.Name(), "ok").Inc()
	return updated, nil
}

// runWithTimeout bounds algorithm execution; the default strategy is O(n²)
// and very large waypoint sets should fail fast rather than block the route.
func (s *Routing) runWithTimeout(ctx context.Context, algo routing.Algorithm, start model.Location, end *model.Location, wps []model.Waypoint, respectTW bool) ([]model.Waypoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.optimizeTimeout)
	defer cancel()

	timer := metrics.OptimizationDuration.WithLabelValues(algo.Name())
	began := time.Now()

	type result struct {
		ordered []model.Waypoint
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		ordered, err := algo.OptimizeRoute(start, end, wps, respectTW)
		ch <- result{ordered, err}
	}()
	select {
	case res := <-ch:
		timer.Observe(time.Since(began).Seconds())
		if res.err != nil {
			return nil, res.err
		}
		return res.ordered, nil
	case <-ctx.Done():
		timer.Observe(time.Since(began).Seconds())
		return nil, fmt.Errorf("%w: %s timed out: %v", model.ErrOptimization, algo.Name(), ctx.Err())
	}
}

// optimizationStart resolves the anchor per the configured start policy:
// the courier's live position (policy "courier", falling back on directory
// failure), otherwise the route's start location or its first waypoint.
func (s *Routing) optimizationStart(ctx context.Context, r model.Route) model.Location {
	if s.startPolicy == config.StartCourier && s.couriers != nil && r.CourierID != "" {
		if loc, err := s.couriers.GetCourierLocation(ctx, r.CourierID); err == nil && loc != nil {
			return *loc
		} else if err != nil {
			log.Printf("service: courier location for %s unavailable, using first waypoint: %v", r.CourierID, err)
		}
	}
	if r.StartLocation != nil {
		return *r.StartLocation
	}
	return r.Waypoints[0].Location
}

// StartRoute transitions ASSIGNED/OPTIMIZED → IN_PROGRESS and records the
// actual start time.
func (s *Routing) StartRoute(ctx context.Context, routeID string) (model.Route, error) {
	l := s.routeLock(routeID)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	if r.Status != model.RouteAssigned && r.Status != model.RouteOptimized {
		return model.Route{}, fmt.Errorf("%w: cannot start route in %s", model.ErrInvalidState, r.Status)
	}
	now := time.Now().UTC()
	r.ActualStartTime = &now
	r.Status = model.RouteInProgress
	return s.saveTransition(ctx, r, "route.started")
}

// CompleteRoute transitions IN_PROGRESS → COMPLETED (terminal) and records
// the actual end time.
func (s *Routing) CompleteRoute(ctx context.Context, routeID string) (model.Route, error) {
	l := s.routeLock(routeID)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	if r.Status != model.RouteInProgress {
		return model.Route{}, fmt.Errorf("%w: cannot complete route in %s", model.ErrInvalidState, r.Status)
	}
	now := time.Now().UTC()
	r.ActualEndTime = &now
	r.Status = model.RouteCompleted
	return s.saveTransition(ctx, r, "route.completed")
}

// CancelRoute is allowed from any non-terminal status.
func (s *Routing) CancelRoute(ctx context.Context, routeID string) (model.Route, error) {
	l := s.routeLock(routeID)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	if r.Status.Terminal() {
		return model.Route{}, fmt.Errorf("%w: route %s is already %s", model.ErrInvalidState, routeID, r.Status)
	}
	r.Status = model.RouteCancelled
	return s.saveTransition(ctx, r, "route.cancelled")
}

// MarkDelayed flags an IN_PROGRESS route as DELAYED.
func (s *Routing) MarkDelayed(ctx context.Context, routeID string) (model.Route, error) {
	l := s.routeLock(routeID)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	if r.Status != model.RouteInProgress {
		return model.Route{}, fmt.Errorf("%w: cannot delay route in %s", model.ErrInvalidState, r.Status)
	}
	r.Status = model.RouteDelayed
	return s.saveTransition(ctx, r, "route.delayed")
}

// AddWaypoint appends a waypoint (sequence after the current tail) and
// refreshes derived metrics.
func (s *Routing) AddWaypoint(ctx context.Context, routeID string, wp model.Waypoint) (model.Route, error) {
	if err := wp.Location.Validate(); err != nil {
		return model.Route{}, err
	}
	l := s.routeLock(routeID)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	if r.Status.Terminal() {
		return model.Route{}, fmt.Errorf("%w: cannot modify %s route", model.ErrInvalidState, r.Status)
	}
	maxSeq := 0
	for i := range r.Waypoints {
		if r.Waypoints[i].Sequence > maxSeq {
			maxSeq = r.Waypoints[i].Sequence
		}
	}
	wp.Sequence = maxSeq + 1
	if wp.Status == "" {
		wp.Status = model.WaypointPending
	}
	r.Waypoints = append(r.Waypoints, wp)
	r.Recalculate(s.avgSpeedKmh)
	return s.saveTransition(ctx, r, "route.waypoint_added")
}

// RemoveWaypoint detaches a waypoint from the route. Unknown waypoint ids
// yield NotFound. The waypoint row is dropped from the route's set; history
// retention is the tracking service's concern.
func (s *Routing) RemoveWaypoint(ctx context.Context, routeID, waypointID string) (model.Route, error) {
	l := s.routeLock(routeID)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	if r.Status.Terminal() {
		return model.Route{}, fmt.Errorf("%w: cannot modify %s route", model.ErrInvalidState, r.Status)
	}
	idx := -1
	for i := range r.Waypoints {
		if r.Waypoints[i].ID == waypointID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return model.Route{}, fmt.Errorf("%w: waypoint %s not on route %s", model.ErrNotFound, waypointID, routeID)
	}
	r.Waypoints = append(r.Waypoints[:idx], r.Waypoints[idx+1:]...)
	r.Recalculate(s.avgSpeedKmh)
	return s.saveTransition(ctx, r, "route.waypoint_removed")
}

// UpdateWaypointStatus progresses a single stop. ARRIVED stamps the actual
// arrival time; COMPLETED on a delivery stop also notifies the tracking
// service (best effort).
func (s *Routing) UpdateWaypointStatus(ctx context.Context, routeID, waypointID string, status model.WaypointStatus) (model.Route, error) {
	l := s.routeLock(routeID)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return model.Route{}, err
	}
	idx := -1
	for i := range r.Waypoints {
		if r.Waypoints[i].ID == waypointID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return model.Route{}, fmt.Errorf("%w: waypoint %s not on route %s", model.ErrNotFound, waypointID, routeID)
	}
	wp := &r.Waypoints[idx]
	wp.Status = status
	now := time.Now().UTC()
	switch status {
	case model.WaypointArrived:
		wp.ActualArrivalTime = &now
	case model.WaypointCompleted:
		if wp.ActualArrivalTime != nil {
			wp.ActualStopDurationMinutes = int(now.Sub(*wp.ActualArrivalTime).Minutes())
		}
	}
	if status == model.WaypointCompleted && wp.IsDelivery() && s.tracking != nil && wp.PackageID != "" {
		if _, err := s.tracking.UpdatePackageStatus(ctx, wp.PackageID, map[string]any{"status": "DELIVERED", "ts": now.Format(time.RFC3339)}); err != nil {
			log.Printf("service: tracking update for package %s: %v", wp.PackageID, err)
		}
	}
	return s.saveTransition(ctx, r, "route.waypoint_updated")
}

// FindNearestCouriers returns courier ids ordered by proximity. Results are
// cached briefly; on a directory outage the cached snapshot is served when
// present, otherwise an empty list.
func (s *Routing) FindNearestCouriers(ctx context.Context, loc model.Location, maxDistanceKm float64) ([]string, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if ids, ok := s.cache.GetCachedNearbyCouriers(ctx, loc, maxDistanceKm); ok {
		return ids, nil
	}
	if s.couriers == nil {
		return []string{}, nil
	}
	ids, err := s.couriers.FindNearestCouriers(ctx, loc.Latitude, loc.Longitude, maxDistanceKm)
	if err != nil {
		// degrade to an empty answer rather than failing the lookup
		log.Printf("service: courier directory lookup failed: %v", err)
		return []string{}, nil
	}
	if ids == nil {
		ids = []string{}
	}
	if err := s.cache.CacheNearbyCouriers(ctx, loc, maxDistanceKm, ids); err != nil {
		log.Printf("service: caching nearby couriers: %v", err)
	}
	return ids, nil
}

// CalculateETA estimates arrival for a shipment on an active route. Returns
// (nil, nil) when no active route carries the shipment. Travel times come
// from the mapping service when it answers, otherwise from Haversine at the
// configured average speed.
func (s *Routing) CalculateETA(ctx context.Context, shipmentID string) (*time.Time, error) {
	if eta, ok := s.cache.GetCachedETA(ctx, shipmentID); ok {
		return &eta, nil
	}
	r, err := s.store.FindRouteByShipment(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	r.SortWaypoints()
	target := r.WaypointByShipment(shipmentID)
	if target == -1 {
		return nil, nil
	}

	// walk from the current position (first unfinished waypoint) to the
	// shipment's stop
	curr := 0
	for curr < len(r.Waypoints) && waypointDone(r.Waypoints[curr].Status) {
		curr++
	}
	if curr > target {
		// already served
		if at := r.Waypoints[target].ActualArrivalTime; at != nil {
			return at, nil
		}
		return nil, nil
	}

	eta := time.Now().UTC()
	pos := r.Waypoints[curr].Location
	if r.Status != model.RouteInProgress && r.StartLocation != nil {
		pos = *r.StartLocation
		eta = eta.Add(s.travelTime(ctx, pos, r.Waypoints[curr].Location))
		pos = r.Waypoints[curr].Location
	}
	for i := curr; i <= target; i++ {
		if i > curr {
			eta = eta.Add(s.travelTime(ctx, pos, r.Waypoints[i].Location))
			pos = r.Waypoints[i].Location
		}
		if i < target {
			eta = eta.Add(time.Duration(r.Waypoints[i].EstimatedStopDurationMinutes) * time.Minute)
		}
	}
	if err := s.cache.CacheETA(ctx, shipmentID, eta); err != nil {
		log.Printf("service: caching eta for %s: %v", shipmentID, err)
	}
	return &eta, nil
}

// travelTime consults the travel-time cache, then the mapping service, then
// falls back to the Haversine estimate.
func (s *Routing) travelTime(ctx context.Context, from, to model.Location) time.Duration {
	if d, ok := s.cache.GetCachedTravelTime(ctx, from, to); ok {
		return d
	}
	if s.mapping != nil {
		if sec := s.mapping.GetEstimatedTravelTime(ctx, from, to); sec >= 0 {
			d := time.Duration(sec) * time.Second
			if err := s.cache.CacheTravelTime(ctx, from, to, d); err != nil {
				log.Printf("service: caching travel time: %v", err)
			}
			return d
		}
	}
	return time.Duration(from.DistanceTo(to) / s.avgSpeedKmh * float64(time.Hour))
}

// GenerateOptimalRoute runs the default algorithm over ad-hoc waypoints
// without persisting anything.
func (s *Routing) GenerateOptimalRoute(ctx context.Context, start model.Location, waypoints []model.Waypoint) ([]model.Waypoint, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	return s.registry.Default().OptimizeRoute(start, nil, waypoints, false)
}

// Algorithms lists registered algorithm names, default first.
func (s *Routing) Algorithms() []string { return s.registry.Names() }

// FindRouteByShipment exposes the reverse shipment index.
func (s *Routing) FindRouteByShipment(ctx context.Context, shipmentID string) (model.Route, error) {
	return s.store.FindRouteByShipment(ctx, shipmentID)
}

// saveTransition persists r, refreshes the cache, publishes the event, and
// bumps the transition metric.
func (s *Routing) saveTransition(ctx context.Context, r model.Route, event string) (model.Route, error) {
	updated, err := s.store.UpdateRoute(ctx, r)
	if err != nil {
		return model.Route{}, err
	}
	s.cacheRoute(ctx, updated)
	s.publish(updated.ID, event, map[string]any{
		"status":  string(updated.Status),
		"version": updated.Version,
	})
	metrics.RouteTransitions.WithLabelValues(string(updated.Status)).Inc()
	return updated, nil
}

func (s *Routing) cacheRoute(ctx context.Context, r model.Route) {
	if err := s.cache.CacheRoute(ctx, r); err != nil {
		log.Printf("service: caching route %s: %v", r.ID, err)
	}
}

func (s *Routing) evictRoute(ctx context.Context, routeID string) {
	if err := s.cache.EvictRoute(ctx, routeID); err != nil {
		log.Printf("service: evicting route %s: %v", routeID, err)
	}
}

func (s *Routing) publish(routeID, eventType string, data map[string]any) {
	if s.events != nil {
		s.events.PublishRouteEvent(routeID, eventType, data)
	}
}

func preSequenced(wps []model.Waypoint) bool {
	if len(wps) == 0 {
		return false
	}
	seen := map[int]bool{}
	for i := range wps {
		if wps[i].Sequence <= 0 || seen[wps[i].Sequence] {
			return false
		}
		seen[wps[i].Sequence] = true
	}
	return true
}

func waypointDone(st model.WaypointStatus) bool {
	switch st {
	case model.WaypointCompleted, model.WaypointSkipped, model.WaypointFailed:
		return true
	}
	return false
}
