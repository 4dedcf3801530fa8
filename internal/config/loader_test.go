package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := New()

	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 70.0, c.WeightKg)
	assert.Equal(t, 168.0, c.LookbackHours)
	assert.Equal(t, 5.0, c.HorizonHalfLives)
	assert.Equal(t, 100.0, c.SamplesPerHalfLife)
	assert.Equal(t, 200000, c.MaxSamples)
	assert.Equal(t, 1000, c.ChartWidth)
	assert.Equal(t, 600, c.ChartHeight)
}

func TestLoad_NoSourcesKeepsDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ENDOSIM_WEIGHT_KG", "64.5")
	t.Setenv("ENDOSIM_LOG_LEVEL", "debug")
	t.Setenv("ENDOSIM_MAX_SAMPLES", "5000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 64.5, cfg.WeightKg)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5000, cfg.MaxSamples)
	// Untouched fields keep their defaults.
	assert.Equal(t, 168.0, cfg.LookbackHours)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endosim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weight_kg: 58\nchart_width: 1400\n"), 0o644))
	t.Setenv("ENDOSIM_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 58.0, cfg.WeightKg)
	assert.Equal(t, 1400, cfg.ChartWidth)
	assert.Equal(t, 600, cfg.ChartHeight)
}

func TestLoad_EnvironmentBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endosim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weight_kg: 58\n"), 0o644))
	t.Setenv("ENDOSIM_CONFIG", path)
	t.Setenv("ENDOSIM_WEIGHT_KG", "80")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.WeightKg)
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	t.Setenv("ENDOSIM_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnusableValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"ENDOSIM_WEIGHT_KG", "-1"},
		{"ENDOSIM_LOOKBACK_HOURS", "-24"},
		{"ENDOSIM_HORIZON_HALF_LIVES", "0"},
		{"ENDOSIM_SAMPLES_PER_HALF_LIFE", "0"},
		{"ENDOSIM_MAX_SAMPLES", "1"},
		{"ENDOSIM_CHART_WIDTH", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_Grid_MirrorsFields(t *testing.T) {
	c := New()
	c.LookbackHours = 24
	c.MaxSamples = 99

	g := c.Grid()
	assert.Equal(t, 24.0, g.LookbackHours)
	assert.Equal(t, 99, g.MaxSamples)
	assert.Equal(t, c.HorizonHalfLives, g.HorizonHalfLives)
	assert.Equal(t, c.SamplesPerHalfLife, g.SamplesPerHalfLife)
}
