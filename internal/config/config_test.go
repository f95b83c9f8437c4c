package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Nearest Neighbor", cfg.Routing.DefaultAlgorithm)
	assert.Equal(t, 30.0, cfg.Routing.AvgSpeedKmh)
	assert.Equal(t, StartFirstWaypoint, cfg.Routing.StartPolicy)
	assert.Equal(t, 30*time.Minute, cfg.Cache.RouteTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AVG_SPEED_KMH", "45")
	t.Setenv("START_POLICY", "courier")
	t.Setenv("OPTIMIZE_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 45.0, cfg.Routing.AvgSpeedKmh)
	assert.Equal(t, StartCourier, cfg.Routing.StartPolicy)
	assert.Equal(t, 3*time.Second, cfg.Routing.OptimizeTimeout)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("port: \"7070\"\nrouting:\n  defaultAlgorithm: Two-Opt\n  avgSpeedKmh: 25\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "Two-Opt", cfg.Routing.DefaultAlgorithm)
	assert.Equal(t, 25.0, cfg.Routing.AvgSpeedKmh)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7070\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6060")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Port)
}

func TestLoadRejectsBadStartPolicy(t *testing.T) {
	t.Setenv("START_POLICY", "teleport")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveSpeed(t *testing.T) {
	t.Setenv("AVG_SPEED_KMH", "-5")
	_, err := Load()
	require.Error(t, err)
}
