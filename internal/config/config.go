// Package config loads service configuration from an optional YAML file
// overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// StartPolicy selects the location optimization starts from.
type StartPolicy string

const (
	// StartFirstWaypoint anchors optimization at the route's first waypoint.
	StartFirstWaypoint StartPolicy = "first_waypoint"
	// StartCourier uses the courier's live position from the directory,
	// falling back to the first waypoint when unavailable.
	StartCourier StartPolicy = "courier"
)

// Config holds all runtime settings for the routing service.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`

	Routing struct {
		DefaultAlgorithm string        `yaml:"defaultAlgorithm"`
		AvgSpeedKmh      float64       `yaml:"avgSpeedKmh"`
		OptimizeTimeout  time.Duration `yaml:"optimizeTimeout"`
		StartPolicy      StartPolicy   `yaml:"startPolicy"`
		TwoOptMaxPasses  int           `yaml:"twoOptMaxPasses"`
	} `yaml:"routing"`

	Cache struct {
		RouteTTL      time.Duration `yaml:"routeTtl"`
		TravelTimeTTL time.Duration `yaml:"travelTimeTtl"`
		CourierTTL    time.Duration `yaml:"courierTtl"`
		ETATTL        time.Duration `yaml:"etaTtl"`
	} `yaml:"cache"`

	External struct {
		CourierBaseURL  string        `yaml:"courierBaseUrl"`
		TrackingBaseURL string        `yaml:"trackingBaseUrl"`
		MappingBaseURL  string        `yaml:"mappingBaseUrl"`
		Timeout         time.Duration `yaml:"timeout"`
	} `yaml:"external"`

	RateRPS   float64 `yaml:"rateRps"`
	RateBurst int     `yaml:"rateBurst"`
}

// Load reads CONFIG_FILE (if set) and applies environment overrides.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	var cfg Config
	cfg.Port = "8080"
	cfg.Routing.DefaultAlgorithm = "Nearest Neighbor"
	cfg.Routing.AvgSpeedKmh = 30
	cfg.Routing.OptimizeTimeout = 10 * time.Second
	cfg.Routing.StartPolicy = StartFirstWaypoint
	cfg.Routing.TwoOptMaxPasses = 5
	cfg.Cache.RouteTTL = 30 * time.Minute
	cfg.Cache.TravelTimeTTL = time.Hour
	cfg.Cache.CourierTTL = time.Minute
	cfg.Cache.ETATTL = 5 * time.Minute
	cfg.External.Timeout = 5 * time.Second
	cfg.RateRPS = 50
	cfg.RateBurst = 100
	return cfg
}

func applyEnv(cfg *Config) {
	setStr(&cfg.Port, "PORT")
	setStr(&cfg.DatabaseURL, "DATABASE_URL")
	setStr(&cfg.RedisURL, "REDIS_URL")
	setStr(&cfg.Routing.DefaultAlgorithm, "DEFAULT_ALGORITHM")
	setFloat(&cfg.Routing.AvgSpeedKmh, "AVG_SPEED_KMH")
	setDur(&cfg.Routing.OptimizeTimeout, "OPTIMIZE_TIMEOUT")
	if v := os.Getenv("START_POLICY"); v != "" {
		cfg.Routing.StartPolicy = StartPolicy(v)
	}
	setStr(&cfg.External.CourierBaseURL, "COURIER_BASE_URL")
	setStr(&cfg.External.TrackingBaseURL, "TRACKING_BASE_URL")
	setStr(&cfg.External.MappingBaseURL, "MAPPING_BASE_URL")
	setDur(&cfg.External.Timeout, "EXTERNAL_TIMEOUT")
	setFloat(&cfg.RateRPS, "RATE_RPS")
	setInt(&cfg.RateBurst, "RATE_BURST")
}

func (c Config) validate() error {
	if c.Routing.AvgSpeedKmh <= 0 {
		return fmt.Errorf("avgSpeedKmh must be > 0, got %v", c.Routing.AvgSpeedKmh)
	}
	switch c.Routing.StartPolicy {
	case StartFirstWaypoint, StartCourier:
	default:
		return fmt.Errorf("unknown startPolicy %q (allowed: first_waypoint, courier)", c.Routing.StartPolicy)
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDur(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
