package api

import (
	"sync"
)

// RouteEvent is a lifecycle event streamed to route watchers over SSE.
type RouteEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// EventBroker fans route events out to subscribers. The in-memory Broker
// serves a single instance; RedisBroker spans instances via pub/sub.
type EventBroker interface {
	Subscribe(routeID string) chan RouteEvent
	Unsubscribe(routeID string, ch chan RouteEvent)
	Publish(routeID string, evt RouteEvent)
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan RouteEvent]struct{} // routeId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan RouteEvent]struct{}{}}
}

func (b *Broker) Subscribe(routeID string) chan RouteEvent {
	ch := make(chan RouteEvent, 8)
	b.mu.Lock()
	if b.subs[routeID] == nil {
		b.subs[routeID] = map[chan RouteEvent]struct{}{}
	}
	b.subs[routeID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(routeID string, ch chan RouteEvent) {
	b.mu.Lock()
	if m := b.subs[routeID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, routeID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(routeID string, evt RouteEvent) {
	b.mu.Lock()
	m := b.subs[routeID]
	for ch := range m {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

// BrokerPublisher adapts an EventBroker to the routing service's publisher
// contract.
type BrokerPublisher struct {
	Broker EventBroker
}

func (p BrokerPublisher) PublishRouteEvent(routeID, eventType string, data map[string]any) {
	p.Broker.Publish(routeID, RouteEvent{Type: eventType, Data: data})
}
