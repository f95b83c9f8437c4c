package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Optimizations counts optimization runs by algorithm and outcome
	Optimizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_optimizations_total", Help: "Route optimization runs by algorithm and outcome."},
		[]string{"algorithm", "outcome"},
	)
	// OptimizationDuration tracks optimization latency in seconds by algorithm
	OptimizationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_optimization_duration_seconds", Help: "Optimization duration in seconds.", Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}},
		[]string{"algorithm"},
	)

	// RouteTransitions counts lifecycle transitions by target status
	RouteTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_status_transitions_total", Help: "Route status transitions by target status."},
		[]string{"status"},
	)

	// CacheOps counts cache lookups by kind and hit/miss
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_operations_total", Help: "Cache lookups by kind and result."},
		[]string{"kind", "result"},
	)

	// ExternalCalls counts boundary calls by service and outcome
	ExternalCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "external_calls_total", Help: "External service calls by service and outcome."},
		[]string{"service", "outcome"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Optimizations)
		Registry.MustRegister(OptimizationDuration)
		Registry.MustRegister(RouteTransitions)
		Registry.MustRegister(CacheOps)
		Registry.MustRegister(ExternalCalls)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
