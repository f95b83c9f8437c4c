package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"couriernav/internal/buildinfo"
	"couriernav/internal/model"
	"couriernav/internal/service"
)

type createRouteRequest struct {
	CourierID     string           `json:"courierId"`
	VehicleID     string           `json:"vehicleId"`
	StartTime     *time.Time       `json:"startTime"`
	StartLocation *model.Location  `json:"startLocation"`
	EndLocation   *model.Location  `json:"endLocation"`
	Waypoints     []model.Waypoint `json:"waypoints"`
}

// CreateRouteHandler handles POST /v1/routes.
func (s *Server) CreateRouteHandler(w http.ResponseWriter, r *http.Request) {
	var req createRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	route, err := s.Service.CreateRoute(r.Context(), service.CreateRouteInput{
		CourierID:     req.CourierID,
		VehicleID:     req.VehicleID,
		StartTime:     req.StartTime,
		StartLocation: req.StartLocation,
		EndLocation:   req.EndLocation,
		Waypoints:     req.Waypoints,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, route)
}

// ListRoutesHandler handles GET /v1/routes?courierId=&status=&limit=.
func (s *Server) ListRoutesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	routes, err := s.Service.ListRoutes(r.Context(),
		r.URL.Query().Get("courierId"),
		model.RouteStatus(r.URL.Query().Get("status")),
		limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": routes})
}

// GetRouteHandler handles GET /v1/routes/{id}.
func (s *Server) GetRouteHandler(w http.ResponseWriter, r *http.Request) {
	route, err := s.Service.GetRoute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// AssignCourierHandler handles POST /v1/routes/{id}/assign.
func (s *Server) AssignCourierHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourierID string `json:"courierId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.CourierID == "" {
		writeProblem(w, http.StatusBadRequest, "Missing courierId", "", r.URL.Path)
		return
	}
	route, err := s.Service.AssignCourier(r.Context(), chi.URLParam(r, "id"), req.CourierID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// OptimizeRouteHandler handles POST /v1/routes/{id}/optimize.
func (s *Server) OptimizeRouteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Algorithm          string `json:"algorithm"`
		RespectTimeWindows bool   `json:"respectTimeWindows"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
	}
	route, err := s.Service.OptimizeRoute(r.Context(), chi.URLParam(r, "id"), req.Algorithm, req.RespectTimeWindows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// RouteTransitionHandler covers the simple lifecycle verbs:
// POST /v1/routes/{id}/{start|complete|cancel|delay}.
func (s *Server) RouteTransitionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var (
		route model.Route
		err   error
	)
	switch verb := chi.URLParam(r, "verb"); verb {
	case "start":
		route, err = s.Service.StartRoute(r.Context(), id)
	case "complete":
		route, err = s.Service.CompleteRoute(r.Context(), id)
	case "cancel":
		route, err = s.Service.CancelRoute(r.Context(), id)
	case "delay":
		route, err = s.Service.MarkDelayed(r.Context(), id)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("unknown transition %q", verb), r.URL.Path)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// AddWaypointHandler handles POST /v1/routes/{id}/waypoints.
func (s *Server) AddWaypointHandler(w http.ResponseWriter, r *http.Request) {
	var wp model.Waypoint
	if err := json.NewDecoder(r.Body).Decode(&wp); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	route, err := s.Service.AddWaypoint(r.Context(), chi.URLParam(r, "id"), wp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// RemoveWaypointHandler handles DELETE /v1/routes/{id}/waypoints/{wpId}.
func (s *Server) RemoveWaypointHandler(w http.ResponseWriter, r *http.Request) {
	route, err := s.Service.RemoveWaypoint(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "wpId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// WaypointStatusHandler handles PUT /v1/routes/{id}/waypoints/{wpId}/status.
func (s *Server) WaypointStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.WaypointStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.Status == "" {
		writeProblem(w, http.StatusBadRequest, "Missing status", "", r.URL.Path)
		return
	}
	route, err := s.Service.UpdateWaypointStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "wpId"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// RouteEventsHandler streams route lifecycle events over SSE:
// GET /v1/routes/{id}/events/stream.
func (s *Server) RouteEventsHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming Unsupported", "", r.URL.Path)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.Service.GetRoute(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
			flusher.Flush()
		}
	}
}

// NearestCouriersHandler handles GET /v1/couriers/nearest?lat=&lon=&radiusKm=.
func (s *Server) NearestCouriersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Query", "lat and lon are required numbers", r.URL.Path)
		return
	}
	radius := 10.0
	if v := q.Get("radiusKm"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			radius = f
		}
	}
	ids, err := s.Service.FindNearestCouriers(r.Context(), model.Location{Latitude: lat, Longitude: lon}, radius)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courierIds": ids})
}

// ShipmentETAHandler handles GET /v1/shipments/{shipmentId}/eta. A shipment
// on no active route answers 200 with a null eta.
func (s *Server) ShipmentETAHandler(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "shipmentId")
	eta, err := s.Service.CalculateETA(r.Context(), shipmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipmentId": shipmentID, "eta": eta})
}

// ShipmentRouteHandler handles GET /v1/shipments/{shipmentId}/route.
func (s *Server) ShipmentRouteHandler(w http.ResponseWriter, r *http.Request) {
	route, err := s.Service.FindRouteByShipment(r.Context(), chi.URLParam(r, "shipmentId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// AdhocOptimizeHandler handles POST /v1/optimize: order ad-hoc waypoints
// without persisting a route.
func (s *Server) AdhocOptimizeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start     model.Location   `json:"start"`
		Waypoints []model.Waypoint `json:"waypoints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	ordered, err := s.Service.GenerateOptimalRoute(r.Context(), req.Start, req.Waypoints)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"waypoints": ordered})
}

// AlgorithmsHandler handles GET /v1/algorithms.
func (s *Server) AlgorithmsHandler(w http.ResponseWriter, r *http.Request) {
	names := s.Service.Algorithms()
	writeJSON(w, http.StatusOK, map[string]any{"algorithms": names, "default": names[0]})
}

// RoutePositionsHandler handles GET /v1/routes/{id}/positions: latest courier
// positions reported for a route over the websocket ingest.
func (s *Server) RoutePositionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Positions.ListByRoute(chi.URLParam(r, "id"))})
}

// HealthHandler handles GET /healthz.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

// ReadyHandler handles GET /readyz.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Ready(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
