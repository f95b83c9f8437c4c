// Package main runs a demo client that streams courier positions over the
// websocket ingest while watching the route's SSE event stream.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// create a small route
	body := []byte(`{
		"vehicleId": "van-1",
		"startLocation": {"latitude": 48.8566, "longitude": 2.3522},
		"waypoints": [
			{"id": "w1", "type": "DELIVERY", "location": {"latitude": 48.8606, "longitude": 2.3376}},
			{"id": "w2", "type": "DELIVERY", "location": {"latitude": 48.8530, "longitude": 2.3499}}
		]
	}`)
	resp, err := http.Post(base+"/v1/routes", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	var route struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Route ID: %s", route.ID)

	// watch the route's SSE stream
	go func() {
		sresp, err := http.Get(fmt.Sprintf("%s/v1/routes/%s/events/stream", base, route.ID))
		if err != nil {
			log.Printf("sse: %v", err)
			return
		}
		defer func() { _ = sresp.Body.Close() }()
		sc := bufio.NewScanner(sresp.Body)
		for sc.Scan() {
			if line := sc.Text(); line != "" {
				log.Printf("SSE <- %s", line)
			}
		}
	}()

	// stream positions over the websocket ingest
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/ws/courier-locations"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	lat, lng := 48.8566, 2.3522
	for i := 0; i < 5; i++ {
		frame := map[string]any{
			"courierId": "courier-demo",
			"routeId":   route.ID,
			"lat":       lat,
			"lng":       lng,
		}
		if err := c.WriteJSON(frame); err != nil {
			log.Fatal(err)
		}
		log.Printf("WS -> %.4f,%.4f", lat, lng)
		lat += 0.0008
		lng -= 0.0011
		time.Sleep(500 * time.Millisecond)
	}

	time.Sleep(time.Second)
}
