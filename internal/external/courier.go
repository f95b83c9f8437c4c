package external

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"couriernav/internal/model"
)

// CourierDirectory is the consumed contract of the courier service.
type CourierDirectory interface {
	IsCourierActive(ctx context.Context, courierID string) (bool, error)
	FindNearestCouriers(ctx context.Context, lat, lon, radiusKm float64) ([]string, error)
	GetCourierLocation(ctx context.Context, courierID string) (*model.Location, error)
	UpdateCourierLocation(ctx context.Context, courierID string, lat, lon float64) (bool, error)
	GetCourierSkills(ctx context.Context, courierID string) (map[string]int, error)
	GetCourierVehicle(ctx context.Context, courierID string) (map[string]any, error)
}

// CourierClient talks to the courier directory over JSON/HTTP.
type CourierClient struct {
	client
}

func NewCourierClient(baseURL string, timeout time.Duration) *CourierClient {
	return &CourierClient{newClient(baseURL, "courier_directory", timeout)}
}

func (c *CourierClient) IsCourierActive(ctx context.Context, courierID string) (bool, error) {
	var out struct {
		Active bool `json:"active"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/couriers/"+courierID+"/status", nil, &out); err != nil {
		return false, err
	}
	return out.Active, nil
}

// FindNearestCouriers returns courier ids ordered by proximity, nearest
// first; the directory's ordering is preserved as-is.
func (c *CourierClient) FindNearestCouriers(ctx context.Context, lat, lon, radiusKm float64) ([]string, error) {
	var out struct {
		CourierIDs []string `json:"courierIds"`
	}
	path := fmt.Sprintf("/v1/couriers/nearest?lat=%v&lon=%v&radiusKm=%v", lat, lon, radiusKm)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.CourierIDs, nil
}

func (c *CourierClient) GetCourierLocation(ctx context.Context, courierID string) (*model.Location, error) {
	var out struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/couriers/"+courierID+"/location", nil, &out); err != nil {
		return nil, err
	}
	return &model.Location{Latitude: out.Lat, Longitude: out.Lon}, nil
}

func (c *CourierClient) UpdateCourierLocation(ctx context.Context, courierID string, lat, lon float64) (bool, error) {
	body := map[string]float64{"lat": lat, "lon": lon}
	if err := c.doJSON(ctx, http.MethodPut, "/v1/couriers/"+courierID+"/location", body, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *CourierClient) GetCourierSkills(ctx context.Context, courierID string) (map[string]int, error) {
	out := map[string]int{}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/couriers/"+courierID+"/skills", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CourierClient) GetCourierVehicle(ctx context.Context, courierID string) (map[string]any, error) {
	out := map[string]any{}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/couriers/"+courierID+"/vehicle", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
