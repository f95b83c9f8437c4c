package external

import (
	"context"
	"net/http"
	"time"
)

// TrackingService is the consumed/produced contract of the package-tracking
// service.
type TrackingService interface {
	GetPackageStatus(ctx context.Context, packageID string) (string, error)
	UpdatePackageStatus(ctx context.Context, packageID string, statusUpdate map[string]any) (bool, error)
	GetPackagesByRoute(ctx context.Context, routeID string) ([]string, error)
	UpdatePackageLocation(ctx context.Context, packageID string, lat, lon float64) (bool, error)
}

// TrackingClient talks to the tracking service over JSON/HTTP.
type TrackingClient struct {
	client
}

func NewTrackingClient(baseURL string, timeout time.Duration) *TrackingClient {
	return &TrackingClient{newClient(baseURL, "tracking", timeout)}
}

func (c *TrackingClient) GetPackageStatus(ctx context.Context, packageID string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/packages/"+packageID+"/status", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *TrackingClient) UpdatePackageStatus(ctx context.Context, packageID string, statusUpdate map[string]any) (bool, error) {
	if err := c.doJSON(ctx, http.MethodPut, "/v1/packages/"+packageID+"/status", statusUpdate, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *TrackingClient) GetPackagesByRoute(ctx context.Context, routeID string) ([]string, error) {
	var out struct {
		PackageIDs []string `json:"packageIds"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/routes/"+routeID+"/packages", nil, &out); err != nil {
		return nil, err
	}
	return out.PackageIDs, nil
}

func (c *TrackingClient) UpdatePackageLocation(ctx context.Context, packageID string, lat, lon float64) (bool, error) {
	body := map[string]float64{"lat": lat, "lon": lon}
	if err := c.doJSON(ctx, http.MethodPut, "/v1/packages/"+packageID+"/location", body, nil); err != nil {
		return false, err
	}
	return true, nil
}
