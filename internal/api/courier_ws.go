package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// positionFrame is one location report from a courier device.
type positionFrame struct {
	CourierID string  `json:"courierId"`
	RouteID   string  `json:"routeId,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	TS        string  `json:"ts,omitempty"`
}

// CourierLocationsWSHandler handles GET /ws/courier-locations: couriers
// stream JSON position frames; each frame updates the position cache and is
// forwarded to the courier directory best-effort.
func (s *Server) CourierLocationsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(4 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	go wsPinger(conn, r.Context().Done())

	for {
		var frame positionFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("api: courier ws read: %v", err)
			}
			return
		}
		if frame.CourierID == "" {
			continue
		}
		if frame.TS == "" {
			frame.TS = time.Now().UTC().Format(time.RFC3339)
		}
		s.Positions.Upsert(CourierPosition{
			CourierID: frame.CourierID,
			RouteID:   frame.RouteID,
			Lat:       frame.Lat,
			Lng:       frame.Lng,
			TS:        frame.TS,
		})
		if frame.RouteID != "" {
			s.Broker.Publish(frame.RouteID, RouteEvent{
				Type: "courier.location",
				Data: map[string]any{"courierId": frame.CourierID, "lat": frame.Lat, "lng": frame.Lng, "ts": frame.TS},
			})
		}
		if s.Couriers != nil {
			if _, err := s.Couriers.UpdateCourierLocation(r.Context(), frame.CourierID, frame.Lat, frame.Lng); err != nil {
				log.Printf("api: forwarding location for %s: %v", frame.CourierID, err)
			}
		}
	}
}

func wsPinger(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
