package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceToSymmetry(t *testing.T) {
	a := Location{Latitude: 40.7128, Longitude: -74.0060}
	b := Location{Latitude: 34.0522, Longitude: -118.2437}

	ab := a.DistanceTo(b)
	ba := b.DistanceTo(a)
	assert.InDelta(t, ab, ba, 1e-6)
	// NYC to LA is roughly 3936 km great-circle
	assert.InDelta(t, 3936, ab, 50)
}

func TestDistanceToSelf(t *testing.T) {
	a := Location{Latitude: 51.5074, Longitude: -0.1278}
	assert.Equal(t, 0.0, a.DistanceTo(a))
}

func TestDistanceOneDegreeLongitudeAtEquator(t *testing.T) {
	a := Location{Latitude: 0, Longitude: 0}
	b := Location{Latitude: 0, Longitude: 1}
	// One degree of longitude at the equator is ~111.2 km
	assert.InDelta(t, 111.2, a.DistanceTo(b), 1)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Location{Latitude: 90, Longitude: -180}.Validate())
	require.NoError(t, Location{Latitude: -90, Longitude: 180}.Validate())

	err := Location{Latitude: 91, Longitude: 0}.Validate()
	require.ErrorIs(t, err, ErrInvalidCoordinate)

	err = Location{Latitude: 0, Longitude: -180.5}.Validate()
	require.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestDistanceAntipodal(t *testing.T) {
	a := Location{Latitude: 0, Longitude: 0}
	b := Location{Latitude: 0, Longitude: 180}
	// Half the Earth's circumference
	assert.InDelta(t, math.Pi*6371, a.DistanceTo(b), 1)
}
