package model

import (
	"fmt"
	"math"
)

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// Location is a geographic point with optional address metadata. It is owned
// by the Waypoint or Route endpoint that references it.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address,omitempty"`
	PostalCode  string  `json:"postalCode,omitempty"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	Country     string  `json:"country,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Validate checks coordinate ranges.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidCoordinate, l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidCoordinate, l.Longitude)
	}
	return nil
}

// DistanceTo returns the Haversine great-circle distance to other in
// kilometers. Pure and symmetric.
func (l Location) DistanceTo(other Location) float64 {
	dLat := (other.Latitude - l.Latitude) * math.Pi / 180
	dLon := (other.Longitude - l.Longitude) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(l.Latitude*math.Pi/180)*math.Cos(other.Latitude*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
