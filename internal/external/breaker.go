package external

import (
	"fmt"
	"sync"
	"time"

	"couriernav/internal/model"
)

// breaker is a minimal three-state circuit breaker. Closed passes calls
// through; after maxFailures consecutive failures it opens and rejects calls
// until cooldown elapses, then allows a single probe (half-open).
type breaker struct {
	mu          sync.Mutex
	maxFailures int
	cooldown    time.Duration
	failures    int
	openedAt    time.Time
	open        bool
}

func newBreaker(maxFailures int, cooldown time.Duration) *breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &breaker{maxFailures: maxFailures, cooldown: cooldown}
}

// allow reports whether a call may proceed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if time.Since(b.openedAt) >= b.cooldown {
		// half-open probe; stay open until the probe succeeds
		return true
	}
	return false
}

func (b *breaker) success() {
	b.mu.Lock()
	b.failures = 0
	b.open = false
	b.mu.Unlock()
}

func (b *breaker) failure() {
	b.mu.Lock()
	b.failures++
	if b.failures >= b.maxFailures {
		b.open = true
		b.openedAt = time.Now()
	}
	b.mu.Unlock()
}

// errOpen wraps the sentinel so callers can errors.Is on ErrExternalService.
func errOpen(service string) error {
	return fmt.Errorf("%w: %s circuit open", model.ErrExternalService, service)
}
