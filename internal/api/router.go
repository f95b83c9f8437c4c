package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"couriernav/internal/metrics"
)

// Router assembles the HTTP surface.
func (s *Server) Router() http.Handler {
	metrics.RegisterDefault()

	r := chi.NewRouter()
	r.Use(observeRequests)
	if s.Cfg.RateRPS > 0 {
		r.Use(limitRequests(s.Cfg.RateRPS, s.Cfg.RateBurst))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/routes", func(r chi.Router) {
			r.Post("/", s.CreateRouteHandler)
			r.Get("/", s.ListRoutesHandler)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetRouteHandler)
				r.Post("/assign", s.AssignCourierHandler)
				r.Post("/optimize", s.OptimizeRouteHandler)
				r.Post("/{verb:start|complete|cancel|delay}", s.RouteTransitionHandler)
				r.Post("/waypoints", s.AddWaypointHandler)
				r.Delete("/waypoints/{wpId}", s.RemoveWaypointHandler)
				r.Put("/waypoints/{wpId}/status", s.WaypointStatusHandler)
				r.Get("/events/stream", s.RouteEventsHandler)
				r.Get("/positions", s.RoutePositionsHandler)
			})
		})
		r.Get("/couriers/nearest", s.NearestCouriersHandler)
		r.Route("/shipments/{shipmentId}", func(r chi.Router) {
			r.Get("/eta", s.ShipmentETAHandler)
			r.Get("/route", s.ShipmentRouteHandler)
		})
		r.Post("/optimize", s.AdhocOptimizeHandler)
		r.Get("/algorithms", s.AlgorithmsHandler)
	})

	r.Get("/ws/courier-locations", s.CourierLocationsWSHandler)

	r.Get("/healthz", s.HealthHandler)
	r.Get("/readyz", s.ReadyHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return r
}
