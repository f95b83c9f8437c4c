// Package external holds the JSON-over-HTTP clients for the courier
// directory, tracking service, and mapping API. All calls carry per-request
// timeouts; the mapping client is additionally circuit-breaker wrapped.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"couriernav/internal/metrics"
	"couriernav/internal/model"
)

type client struct {
	http    *http.Client
	baseURL string
	service string
}

func newClient(baseURL, service string, timeout time.Duration) client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		service: service,
	}
}

// doJSON issues a request and decodes the JSON response into out (when
// non-nil). Non-2xx responses and transport errors surface as
// ErrExternalService.
func (c client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ExternalCalls.WithLabelValues(c.service, "error").Inc()
		return fmt.Errorf("%w: %s: %v", model.ErrExternalService, c.service, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ExternalCalls.WithLabelValues(c.service, "error").Inc()
		return fmt.Errorf("%w: %s returned %d", model.ErrExternalService, c.service, resp.StatusCode)
	}
	metrics.ExternalCalls.WithLabelValues(c.service, "ok").Inc()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", model.ErrExternalService, c.service, err)
	}
	return nil
}
