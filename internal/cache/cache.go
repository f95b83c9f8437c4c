// Package cache provides the expiring cache contracts for computed routes,
// travel times, nearby-courier lookups, and ETAs.
package cache

import (
	"context"
	"time"

	"couriernav/internal/model"
)

// Cache is the caching contract consumed by the routing service. Lookups
// return ok=false on miss or backend failure; the service treats the cache
// as best-effort and never fails an operation on a cache error.
type Cache interface {
	CacheRoute(ctx context.Context, route model.Route) error
	GetCachedRoute(ctx context.Context, routeID string) (model.Route, bool)
	EvictRoute(ctx context.Context, routeID string) error

	CacheTravelTime(ctx context.Context, origin, dest model.Location, d time.Duration) error
	GetCachedTravelTime(ctx context.Context, origin, dest model.Location) (time.Duration, bool)

	CacheNearbyCouriers(ctx context.Context, loc model.Location, radiusKm float64, courierIDs []string) error
	GetCachedNearbyCouriers(ctx context.Context, loc model.Location, radiusKm float64) ([]string, bool)

	CacheETA(ctx context.Context, shipmentID string, eta time.Time) error
	GetCachedETA(ctx context.Context, shipmentID string) (time.Time, bool)

	ClearAll(ctx context.Context) error
}

// TTLs carries per-kind expirations.
type TTLs struct {
	Route      time.Duration
	TravelTime time.Duration
	Couriers   time.Duration
	ETA        time.Duration
}

// DefaultTTLs match the documented expirations: routes 30m, travel times 1h,
// nearby couriers 1m, ETAs 5m.
func DefaultTTLs() TTLs {
	return TTLs{
		Route:      30 * time.Minute,
		TravelTime: time.Hour,
		Couriers:   time.Minute,
		ETA:        5 * time.Minute,
	}
}

// Noop satisfies Cache without storing anything; used when no REDIS_URL is
// configured.
type Noop struct{}

func (Noop) CacheRoute(context.Context, model.Route) error { return nil }
func (Noop) GetCachedRoute(context.Context, string) (model.Route, bool) {
	return model.Route{}, false
}
func (Noop) EvictRoute(context.Context, string) error { return nil }
func (Noop) CacheTravelTime(context.Context, model.Location, model.Location, time.Duration) error {
	return nil
}
func (Noop) GetCachedTravelTime(context.Context, model.Location, model.Location) (time.Duration, bool) {
	return 0, false
}
func (Noop) CacheNearbyCouriers(context.Context, model.Location, float64, []string) error {
	return nil
}
func (Noop) GetCachedNearbyCouriers(context.Context, model.Location, float64) ([]string, bool) {
	return nil, false
}
func (Noop) CacheETA(context.Context, string, time.Time) error { return nil }
func (Noop) GetCachedETA(context.Context, string) (time.Time, bool) {
	return time.Time{}, false
}
func (Noop) ClearAll(context.Context) error { return nil }
