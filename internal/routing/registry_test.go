package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couriernav/internal/model"
)

func TestRegistryEmpty(t *testing.T) {
	_, err := NewRegistry(NearestNeighborName)
	require.ErrorIs(t, err, model.ErrConfiguration)
}

func TestRegistryDefault(t *testing.T) {
	nn := NewNearestNeighbor(30)
	to := NewTwoOpt(30, 3)
	reg, err := NewRegistry(TwoOptName, nn, to)
	require.NoError(t, err)
	assert.Equal(t, TwoOptName, reg.Default().Name())
}

func TestRegistryUnknownDefaultFallsBack(t *testing.T) {
	nn := NewNearestNeighbor(30)
	reg, err := NewRegistry("simulated-annealing", nn)
	require.NoError(t, err)
	assert.Equal(t, NearestNeighborName, reg.Default().Name())
}

func TestRegistryGetUnknownNameFallsBackToDefault(t *testing.T) {
	nn := NewNearestNeighbor(30)
	to := NewTwoOpt(30, 3)
	reg, err := NewRegistry(NearestNeighborName, nn, to)
	require.NoError(t, err)

	got := reg.Get("nonexistent-name")
	require.NotNil(t, got)
	assert.Same(t, reg.Default().(*NearestNeighbor), got.(*NearestNeighbor))
}

func TestRegistryNames(t *testing.T) {
	nn := NewNearestNeighbor(30)
	to := NewTwoOpt(30, 3)
	reg, err := NewRegistry(NearestNeighborName, to, nn)
	require.NoError(t, err)
	assert.Equal(t, []string{NearestNeighborName, TwoOptName}, reg.Names())
}
