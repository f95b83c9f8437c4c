package api

import (
	"context"
	"log"
	"os"
	"strings"

	"couriernav/internal/cache"
	"couriernav/internal/config"
	"couriernav/internal/external"
	"couriernav/internal/routing"
	"couriernav/internal/service"
	"couriernav/internal/store"
)

// Server bundles the wired dependencies behind the HTTP surface.
type Server struct {
	Cfg       config.Config
	Store     store.Store
	Cache     cache.Cache
	Service   *service.Routing
	Broker    EventBroker
	Positions *PositionCache
	Couriers  external.CourierDirectory
}

// NewServer wires a Server from configuration. With no DATABASE_URL it runs
// on the in-memory store; with no REDIS_URL caching is a no-op and events
// stay instance-local.
func NewServer(cfg config.Config) (*Server, error) {
	var st store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		st = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// dev helper; production runs migrations out of band
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.MigrateDir("db/migrations"); err != nil {
				log.Printf("api: migrations: %v", err)
			}
		}
		st = sp
	}

	var c cache.Cache = cache.Noop{}
	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		ttls := cache.TTLs{
			Route:      cfg.Cache.RouteTTL,
			TravelTime: cfg.Cache.TravelTimeTTL,
			Couriers:   cfg.Cache.CourierTTL,
			ETA:        cfg.Cache.ETATTL,
		}
		if rc, err := cache.NewRedis(cfg.RedisURL, ttls); err == nil {
			c = rc
		} else {
			log.Printf("api: redis cache unavailable, running without cache: %v", err)
		}
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			log.Printf("api: redis broker unavailable, using in-memory broker: %v", err)
		}
	}

	var couriers external.CourierDirectory
	if cfg.External.CourierBaseURL != "" {
		couriers = external.NewCourierClient(cfg.External.CourierBaseURL, cfg.External.Timeout)
	}
	var tracking external.TrackingService
	if cfg.External.TrackingBaseURL != "" {
		tracking = external.NewTrackingClient(cfg.External.TrackingBaseURL, cfg.External.Timeout)
	}
	var mapping external.MappingService
	if cfg.External.MappingBaseURL != "" {
		mapping = external.NewMappingClient(cfg.External.MappingBaseURL, cfg.External.Timeout)
	}

	reg, err := routing.NewRegistry(cfg.Routing.DefaultAlgorithm,
		routing.NewNearestNeighbor(cfg.Routing.AvgSpeedKmh),
		routing.NewTwoOpt(cfg.Routing.AvgSpeedKmh, cfg.Routing.TwoOptMaxPasses),
	)
	if err != nil {
		return nil, err
	}

	svc, err := service.NewRouting(service.Options{
		Store:           st,
		Registry:        reg,
		Cache:           c,
		Couriers:        couriers,
		Tracking:        tracking,
		Mapping:         mapping,
		Events:          BrokerPublisher{Broker: broker},
		AvgSpeedKmh:     cfg.Routing.AvgSpeedKmh,
		StartPolicy:     cfg.Routing.StartPolicy,
		OptimizeTimeout: cfg.Routing.OptimizeTimeout,
	})
	if err != nil {
		return nil, err
	}

	return &Server{
		Cfg:       cfg,
		Store:     st,
		Cache:     c,
		Service:   svc,
		Broker:    broker,
		Positions: NewPositionCache(),
		Couriers:  couriers,
	}, nil
}

// Ready reports whether backing services answer.
func (s *Server) Ready(ctx context.Context) error {
	if p, ok := s.Store.(*store.Postgres); ok {
		return p.Ping(ctx)
	}
	return nil
}
