package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"couriernav/internal/metrics"
	"couriernav/internal/model"
)

const keyPrefix = "routing:"

// Redis implements Cache over go-redis with per-kind TTLs.
type Redis struct {
	rdb  *redis.Client
	ttls TTLs
}

// NewRedis parses url (redis://...) and pings the server.
func NewRedis(url string, ttls TTLs) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping: %v", model.ErrExternalService, err)
	}
	return &Redis{rdb: rdb, ttls: ttls}, nil
}

func (c *Redis) CacheRoute(ctx context.Context, route model.Route) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, routeKey(route.ID), data, c.ttls.Route).Err()
}

func (c *Redis) GetCachedRoute(ctx context.Context, routeID string) (model.Route, bool) {
	data, err := c.rdb.Get(ctx, routeKey(routeID)).Bytes()
	if err != nil {
		count("route", false)
		return model.Route{}, false
	}
	var r model.Route
	if err := json.Unmarshal(data, &r); err != nil {
		count("route", false)
		return model.Route{}, false
	}
	count("route", true)
	return r, true
}

func (c *Redis) EvictRoute(ctx context.Context, routeID string) error {
	return c.rdb.Del(ctx, routeKey(routeID)).Err()
}

func (c *Redis) CacheTravelTime(ctx context.Context, origin, dest model.Location, d time.Duration) error {
	return c.rdb.Set(ctx, travelKey(origin, dest), d.Milliseconds(), c.ttls.TravelTime).Err()
}

func (c *Redis) GetCachedTravelTime(ctx context.Context, origin, dest model.Location) (time.Duration, bool) {
	ms, err := c.rdb.Get(ctx, travelKey(origin, dest)).Int64()
	if err != nil {
		count("travel_time", false)
		return 0, false
	}
	count("travel_time", true)
	return time.Duration(ms) * time.Millisecond, true
}

func (c *Redis) CacheNearbyCouriers(ctx context.Context, loc model.Location, radiusKm float64, courierIDs []string) error {
	data, err := json.Marshal(courierIDs)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, nearbyKey(loc, radiusKm), data, c.ttls.Couriers).Err()
}

func (c *Redis) GetCachedNearbyCouriers(ctx context.Context, loc model.Location, radiusKm float64) ([]string, bool) {
	data, err := c.rdb.Get(ctx, nearbyKey(loc, radiusKm)).Bytes()
	if err != nil {
		count("nearby_couriers", false)
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		count("nearby_couriers", false)
		return nil, false
	}
	count("nearby_couriers", true)
	return ids, true
}

func (c *Redis) CacheETA(ctx context.Context, shipmentID string, eta time.Time) error {
	return c.rdb.Set(ctx, etaKey(shipmentID), eta.UTC().Format(time.RFC3339Nano), c.ttls.ETA).Err()
}

func (c *Redis) GetCachedETA(ctx context.Context, shipmentID string) (time.Time, bool) {
	s, err := c.rdb.Get(ctx, etaKey(shipmentID)).Result()
	if err != nil {
		count("eta", false)
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		count("eta", false)
		return time.Time{}, false
	}
	count("eta", true)
	return t, true
}

// ClearAll removes every key under the routing prefix via SCAN, leaving
// unrelated keys on the Redis instance alone.
func (c *Redis) ClearAll(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func routeKey(id string) string { return keyPrefix + "route:" + id }

func etaKey(shipmentID string) string { return keyPrefix + "eta:" + shipmentID }

// travelKey quantizes coordinates to ~11 m so nearby lookups share entries.
func travelKey(a, b model.Location) string {
	return fmt.Sprintf("%stt:%.4f,%.4f|%.4f,%.4f", keyPrefix, a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func nearbyKey(loc model.Location, radiusKm float64) string {
	return fmt.Sprintf("%snear:%.4f,%.4f:%.1f", keyPrefix, loc.Latitude, loc.Longitude, radiusKm)
}

func count(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.CacheOps.WithLabelValues(kind, result).Inc()
}
