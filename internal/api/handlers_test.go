package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"couriernav/internal/config"
	"couriernav/internal/model"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	var cfg config.Config
	cfg.Routing.DefaultAlgorithm = "Nearest Neighbor"
	cfg.Routing.AvgSpeedKmh = 30
	cfg.Routing.TwoOptMaxPasses = 5
	cfg.Routing.StartPolicy = config.StartFirstWaypoint
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, s.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func createTestRoute(t *testing.T, h http.Handler) model.Route {
	t.Helper()
	body := map[string]any{
		"vehicleId":     "van-1",
		"startLocation": map[string]float64{"latitude": 0, "longitude": 0},
		"waypoints": []map[string]any{
			{"id": "a", "type": "DELIVERY", "shipmentId": "ship-a", "location": map[string]float64{"latitude": 0, "longitude": 5}},
			{"id": "b", "type": "DELIVERY", "shipmentId": "ship-b", "location": map[string]float64{"latitude": 0, "longitude": 1}},
			{"id": "c", "type": "DELIVERY", "shipmentId": "ship-c", "location": map[string]float64{"latitude": 0, "longitude": 3}},
		},
	}
	rr := doJSON(t, h, http.MethodPost, "/v1/routes", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create route: got %d body %s", rr.Code, rr.Body.String())
	}
	var route model.Route
	if err := json.Unmarshal(rr.Body.Bytes(), &route); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	return route
}

func TestHealthReady(t *testing.T) {
	_, h := newTestServer(t)
	rr := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/readyz", nil)
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestRouteLifecycleOverHTTP(t *testing.T) {
	_, h := newTestServer(t)
	route := createTestRoute(t, h)
	base := "/v1/routes/" + route.ID

	rr := doJSON(t, h, http.MethodPost, base+"/assign", map[string]string{"courierId": "c1"})
	if rr.Code != 200 {
		t.Fatalf("assign: got %d body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, base+"/optimize", map[string]any{})
	if rr.Code != 200 {
		t.Fatalf("optimize: got %d body %s", rr.Code, rr.Body.String())
	}
	var optimized model.Route
	if err := json.Unmarshal(rr.Body.Bytes(), &optimized); err != nil {
		t.Fatalf("decode optimized: %v", err)
	}
	if optimized.Status != model.RouteOptimized {
		t.Fatalf("status after optimize: %s", optimized.Status)
	}
	var order []string
	for _, w := range optimized.Waypoints {
		order = append(order, w.ID)
	}
	if got, want := strings.Join(order, ","), "b,c,a"; got != want {
		t.Fatalf("optimized order: got %s want %s", got, want)
	}

	for _, verb := range []string{"start", "complete"} {
		rr = doJSON(t, h, http.MethodPost, base+"/"+verb, nil)
		if rr.Code != 200 {
			t.Fatalf("%s: got %d body %s", verb, rr.Code, rr.Body.String())
		}
	}

	rr = doJSON(t, h, http.MethodGet, base, nil)
	var final model.Route
	if err := json.Unmarshal(rr.Body.Bytes(), &final); err != nil {
		t.Fatalf("decode final: %v", err)
	}
	if final.Status != model.RouteCompleted {
		t.Fatalf("final status: %s", final.Status)
	}
	if final.ActualStartTime == nil || final.ActualEndTime == nil {
		t.Fatalf("actual times not recorded: %+v", final)
	}
}

func TestInvalidTransitionConflicts(t *testing.T) {
	_, h := newTestServer(t)
	route := createTestRoute(t, h)

	rr := doJSON(t, h, http.MethodPost, "/v1/routes/"+route.ID+"/complete", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("complete on CREATED: got %d want 409", rr.Code)
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Status != http.StatusConflict || p.Title == "" {
		t.Fatalf("problem body: %+v", p)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	_, h := newTestServer(t)
	rr := doJSON(t, h, http.MethodGet, "/v1/routes/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d want 404", rr.Code)
	}
}

func TestBadJSONIs400(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/routes", strings.NewReader("{nope"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", rr.Code)
	}
}

func TestInvalidCoordinateIs400(t *testing.T) {
	_, h := newTestServer(t)
	body := map[string]any{
		"waypoints": []map[string]any{
			{"id": "a", "location": map[string]float64{"latitude": 91, "longitude": 0}},
		},
	}
	rr := doJSON(t, h, http.MethodPost, "/v1/routes", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400, body %s", rr.Code, rr.Body.String())
	}
}

func TestWaypointOperations(t *testing.T) {
	_, h := newTestServer(t)
	route := createTestRoute(t, h)
	base := "/v1/routes/" + route.ID

	rr := doJSON(t, h, http.MethodPost, base+"/waypoints", map[string]any{
		"id": "d", "type": "PICKUP", "location": map[string]float64{"latitude": 0, "longitude": 4},
	})
	if rr.Code != 200 {
		t.Fatalf("add waypoint: got %d body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPut, base+"/waypoints/d/status", map[string]string{"status": "ARRIVED"})
	if rr.Code != 200 {
		t.Fatalf("waypoint status: got %d body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodDelete, base+"/waypoints/d", nil)
	if rr.Code != 200 {
		t.Fatalf("remove waypoint: got %d body %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, h, http.MethodDelete, base+"/waypoints/d", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("remove missing waypoint: got %d want 404", rr.Code)
	}
}

func TestShipmentETAAndRoute(t *testing.T) {
	_, h := newTestServer(t)
	route := createTestRoute(t, h)

	rr := doJSON(t, h, http.MethodGet, "/v1/shipments/ship-b/route", nil)
	if rr.Code != 200 {
		t.Fatalf("shipment route: got %d body %s", rr.Code, rr.Body.String())
	}
	var got model.Route
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != route.ID {
		t.Fatalf("shipment route id: got %s want %s", got.ID, route.ID)
	}

	// unknown shipment answers 200 with a null eta, not 404
	rr = doJSON(t, h, http.MethodGet, "/v1/shipments/no-such/eta", nil)
	if rr.Code != 200 {
		t.Fatalf("eta unknown shipment: got %d", rr.Code)
	}
	var etaResp struct {
		ETA *string `json:"eta"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &etaResp); err != nil {
		t.Fatalf("decode eta: %v", err)
	}
	if etaResp.ETA != nil {
		t.Fatalf("eta for unknown shipment: got %v want null", *etaResp.ETA)
	}
}

func TestAdhocOptimize(t *testing.T) {
	_, h := newTestServer(t)
	rr := doJSON(t, h, http.MethodPost, "/v1/optimize", map[string]any{
		"start": map[string]float64{"latitude": 0, "longitude": 0},
		"waypoints": []map[string]any{
			{"id": "far", "location": map[string]float64{"latitude": 0, "longitude": 5}},
			{"id": "near", "location": map[string]float64{"latitude": 0, "longitude": 1}},
		},
	})
	if rr.Code != 200 {
		t.Fatalf("adhoc optimize: got %d body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Waypoints []model.Waypoint `json:"waypoints"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Waypoints) != 2 || resp.Waypoints[0].ID != "near" {
		t.Fatalf("bad order: %+v", resp.Waypoints)
	}
}

func TestAlgorithmsEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	rr := doJSON(t, h, http.MethodGet, "/v1/algorithms", nil)
	if rr.Code != 200 {
		t.Fatalf("algorithms: got %d", rr.Code)
	}
	var resp struct {
		Algorithms []string `json:"algorithms"`
		Default    string   `json:"default"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Default != "Nearest Neighbor" || len(resp.Algorithms) < 2 {
		t.Fatalf("bad response: %+v", resp)
	}
}

func TestListRoutesFilters(t *testing.T) {
	_, h := newTestServer(t)
	r1 := createTestRoute(t, h)
	createTestRoute(t, h)

	rr := doJSON(t, h, http.MethodPost, "/v1/routes/"+r1.ID+"/assign", map[string]string{"courierId": "c9"})
	if rr.Code != 200 {
		t.Fatalf("assign: got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/v1/routes?courierId=c9", nil)
	if rr.Code != 200 {
		t.Fatalf("list: got %d", rr.Code)
	}
	var resp struct {
		Items []model.Route `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != r1.ID {
		t.Fatalf("filtered list: %+v", resp.Items)
	}
}

func TestNearestCouriersValidation(t *testing.T) {
	_, h := newTestServer(t)
	rr := doJSON(t, h, http.MethodGet, "/v1/couriers/nearest", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing params: got %d want 400", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/v1/couriers/nearest?lat=48.85&lon=2.35&radiusKm=5", nil)
	if rr.Code != 200 {
		t.Fatalf("nearest: got %d body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		CourierIDs []string `json:"courierIds"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CourierIDs == nil {
		t.Fatal("courierIds should be an empty array, not null")
	}
}

func TestRateLimit(t *testing.T) {
	var cfg config.Config
	cfg.Routing.DefaultAlgorithm = "Nearest Neighbor"
	cfg.Routing.AvgSpeedKmh = 30
	cfg.Routing.StartPolicy = config.StartFirstWaypoint
	cfg.RateRPS = 1
	cfg.RateBurst = 2
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	h := s.Router()

	limited := false
	for i := 0; i < 5; i++ {
		rr := doJSON(t, h, http.MethodGet, fmt.Sprintf("/healthz?i=%d", i), nil)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected a 429 after burst exhaustion")
	}
}
