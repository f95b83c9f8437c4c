package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"couriernav/internal/config"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	rid := "r1"
	ch := b.Subscribe(rid)

	evt := RouteEvent{Type: "route.assigned", Data: map[string]any{"status": "ASSIGNED"}}
	b.Publish(rid, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["status"].(string) != "ASSIGNED" {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(rid, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerIsolatesRoutes(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	defer b.Unsubscribe("r1", ch)

	b.Publish("r2", RouteEvent{Type: "route.started"})
	select {
	case evt := <-ch:
		t.Fatalf("r1 subscriber saw r2 event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerPublisherAdapter(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	defer b.Unsubscribe("r1", ch)

	BrokerPublisher{Broker: b}.PublishRouteEvent("r1", "route.optimized", map[string]any{"version": 2})
	select {
	case got := <-ch:
		if got.Type != "route.optimized" {
			t.Fatalf("got %s", got.Type)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout")
	}
}

func TestCourierLocationsWS(t *testing.T) {
	var cfg config.Config
	cfg.Routing.DefaultAlgorithm = "Nearest Neighbor"
	cfg.Routing.AvgSpeedKmh = 30
	cfg.Routing.StartPolicy = config.StartFirstWaypoint
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	// watch route events for the courier position broadcast
	events := s.Broker.Subscribe("route-9")
	defer s.Broker.Unsubscribe("route-9", events)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/courier-locations"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("upgrade: got %d", resp.StatusCode)
	}

	frame := map[string]any{"courierId": "c1", "routeId": "route-9", "lat": 48.85, "lng": 2.35}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case evt := <-events:
		if evt.Type != "courier.location" {
			t.Fatalf("event type: %s", evt.Type)
		}
		if evt.Data["courierId"].(string) != "c1" {
			t.Fatalf("event data: %+v", evt.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for courier.location event")
	}

	pos, ok := s.Positions.Get("c1")
	if !ok {
		t.Fatal("position not cached")
	}
	if pos.Lat != 48.85 || pos.RouteID != "route-9" {
		t.Fatalf("cached position: %+v", pos)
	}
	if len(s.Positions.ListByRoute("route-9")) != 1 {
		t.Fatal("ListByRoute should return one position")
	}
}
