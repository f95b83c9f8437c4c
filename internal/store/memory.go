package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"couriernav/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set. Routes are
// deep-copied on the way in and out so callers can never mutate stored state
// behind the version check.
type Memory struct {
	mu         sync.RWMutex
	routes     map[string]model.Route
	byShipment map[string]string // shipmentID -> routeID
	order      []string          // insertion order for stable listings
}

func NewMemory() *Memory {
	return &Memory{
		routes:     map[string]model.Route{},
		byShipment: map[string]string{},
	}
}

func (m *Memory) CreateRoute(ctx context.Context, route model.Route) (model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if route.ID == "" {
		route.ID = uuid.New().String()
	}
	if route.Version == 0 {
		route.Version = 1
	}
	now := time.Now().UTC()
	route.CreatedAt = now
	route.UpdatedAt = now
	for i := range route.Waypoints {
		if route.Waypoints[i].ID == "" {
			route.Waypoints[i].ID = uuid.New().String()
		}
	}
	m.routes[route.ID] = cloneRoute(route)
	m.order = append(m.order, route.ID)
	m.indexShipments(route)
	return route, nil
}

func (m *Memory) GetRoute(ctx context.Context, routeID string) (model.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routes[routeID]
	if !ok {
		return model.Route{}, model.ErrNotFound
	}
	return cloneRoute(r), nil
}

func (m *Memory) UpdateRoute(ctx context.Context, route model.Route) (model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	curr, ok := m.routes[route.ID]
	if !ok {
		return model.Route{}, model.ErrNotFound
	}
	if curr.Version != route.Version {
		return model.Route{}, ErrVersionConflict
	}
	m.unindexShipments(curr)
	route.Version++
	route.UpdatedAt = time.Now().UTC()
	for i := range route.Waypoints {
		if route.Waypoints[i].ID == "" {
			route.Waypoints[i].ID = uuid.New().String()
		}
	}
	m.routes[route.ID] = cloneRoute(route)
	m.indexShipments(route)
	return route, nil
}

func (m *Memory) DeleteRoute(ctx context.Context, routeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok {
		return model.ErrNotFound
	}
	m.unindexShipments(r)
	delete(m.routes, routeID)
	for i, id := range m.order {
		if id == routeID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) ListRoutes(ctx context.Context, courierID string, status model.RouteStatus, limit int) ([]model.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	out := []model.Route{}
	for _, id := range m.order {
		r := m.routes[id]
		if courierID != "" && r.CourierID != courierID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, cloneRoute(r))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) FindRouteByShipment(ctx context.Context, shipmentID string) (model.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byShipment[shipmentID]; ok {
		if r, ok := m.routes[id]; ok && !r.Status.Terminal() {
			return cloneRoute(r), nil
		}
	}
	return model.Route{}, model.ErrNotFound
}

// indexShipments maintains the reverse shipment -> route mapping for
// non-terminal routes.
func (m *Memory) indexShipments(r model.Route) {
	if r.Status.Terminal() {
		return
	}
	for i := range r.Waypoints {
		if sid := r.Waypoints[i].ShipmentID; sid != "" {
			m.byShipment[sid] = r.ID
		}
	}
}

func (m *Memory) unindexShipments(r model.Route) {
	for i := range r.Waypoints {
		if sid := r.Waypoints[i].ShipmentID; sid != "" && m.byShipment[sid] == r.ID {
			delete(m.byShipment, sid)
		}
	}
}

func cloneRoute(r model.Route) model.Route {
	out := r
	out.Waypoints = append([]model.Waypoint(nil), r.Waypoints...)
	sort.SliceStable(out.Waypoints, func(i, j int) bool {
		return out.Waypoints[i].Sequence < out.Waypoints[j].Sequence
	})
	return out
}
