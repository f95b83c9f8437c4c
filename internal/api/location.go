package api

import (
	"sync"
)

// CourierPosition is the latest reported position for one courier.
type CourierPosition struct {
	CourierID string  `json:"courierId"`
	RouteID   string  `json:"routeId,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	TS        string  `json:"ts"`
}

// PositionCache stores the latest courier positions fed by the websocket
// ingest endpoint.
type PositionCache struct {
	mu sync.Mutex
	m  map[string]CourierPosition // courierId -> latest
}

func NewPositionCache() *PositionCache {
	return &PositionCache{m: map[string]CourierPosition{}}
}

// Upsert stores or updates the latest position for a courier.
func (c *PositionCache) Upsert(p CourierPosition) {
	if p.CourierID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[p.CourierID] = p
}

// Get returns the latest position for one courier.
func (c *PositionCache) Get(courierID string) (CourierPosition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.m[courierID]
	return p, ok
}

// ListByRoute returns the latest positions of couriers reporting on a route.
func (c *PositionCache) ListByRoute(routeID string) []CourierPosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []CourierPosition{}
	for _, p := range c.m {
		if p.RouteID == routeID {
			out = append(out, p)
		}
	}
	return out
}
