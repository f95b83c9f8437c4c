package external

import (
	"context"
	"net/http"
	"time"

	"couriernav/internal/model"
)

// MappingService is the consumed contract of the external mapping provider.
// GetEstimatedTravelTime never returns an error: -1 signals failure and the
// caller falls back to Haversine estimates.
type MappingService interface {
	CalculateRoute(ctx context.Context, waypoints []model.Location) (*RouteGeometry, error)
	GetEstimatedTravelTime(ctx context.Context, origin, dest model.Location) int
	GetTrafficConditions(ctx context.Context, loc model.Location, radiusMeters int) (map[string]any, error)
}

// RouteGeometry is the mapping provider's answer for a waypoint sequence.
type RouteGeometry struct {
	DistanceMeters  int    `json:"distanceMeters"`
	DurationSeconds int    `json:"durationSeconds"`
	Geometry        string `json:"geometry"`
}

// MappingClient wraps the mapping API with a circuit breaker so a flapping
// provider cannot stall route mutations.
type MappingClient struct {
	client
	breaker *breaker
}

func NewMappingClient(baseURL string, timeout time.Duration) *MappingClient {
	return &MappingClient{
		client:  newClient(baseURL, "mapping", timeout),
		breaker: newBreaker(5, 30*time.Second),
	}
}

func (c *MappingClient) CalculateRoute(ctx context.Context, waypoints []model.Location) (*RouteGeometry, error) {
	if !c.breaker.allow() {
		return nil, errOpen("mapping")
	}
	body := map[string]any{"waypoints": waypoints}
	var out RouteGeometry
	if err := c.doJSON(ctx, http.MethodPost, "/v1/directions", body, &out); err != nil {
		c.breaker.failure()
		return nil, err
	}
	c.breaker.success()
	return &out, nil
}

// GetEstimatedTravelTime returns seconds between origin and dest, or -1 on
// any failure (open breaker, transport error, bad payload).
func (c *MappingClient) GetEstimatedTravelTime(ctx context.Context, origin, dest model.Location) int {
	if !c.breaker.allow() {
		return -1
	}
	body := map[string]any{"origin": origin, "destination": dest}
	var out struct {
		Seconds int `json:"seconds"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/travel-time", body, &out); err != nil {
		c.breaker.failure()
		return -1
	}
	c.breaker.success()
	return out.Seconds
}

func (c *MappingClient) GetTrafficConditions(ctx context.Context, loc model.Location, radiusMeters int) (map[string]any, error) {
	if !c.breaker.allow() {
		return nil, errOpen("mapping")
	}
	body := map[string]any{"location": loc, "radiusMeters": radiusMeters}
	out := map[string]any{}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/traffic", body, &out); err != nil {
		c.breaker.failure()
		return nil, err
	}
	c.breaker.success()
	return out, nil
}
