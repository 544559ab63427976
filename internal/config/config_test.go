package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthiivan/sih/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.SimInterval)
	assert.Equal(t, 60*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 60*time.Minute, cfg.Cooldown)
	assert.Equal(t, 2000, cfg.MaxHistory)
	assert.True(t, cfg.AlertsDryRun)

	require.Len(t, cfg.Regions, 4)
	assert.Equal(t, "chn-central", cfg.Regions[0].ID)
}

func TestLoadRegionOverride(t *testing.T) {
	t.Setenv("REGIONS", `[{"id":"test-1","name":"Test One","lat":1,"lng":2}]`)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Len(t, cfg.Regions, 1)
	assert.Equal(t, "test-1", cfg.Regions[0].ID)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("REGIONS", `not json`)
	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("REGIONS", `[]`)
	_, err = config.Load()
	assert.Error(t, err)

	t.Setenv("REGIONS", "")
	t.Setenv("SIM_INTERVAL", "often")
	_, err = config.Load()
	assert.Error(t, err)
}

func TestAlertsDryRunOptOut(t *testing.T) {
	t.Setenv("ALERTS_DRY_RUN", "0")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.AlertsDryRun)
}
