// Package config defines endosim process configuration and its layered
// loading: defaults, then an optional YAML file, then ENDOSIM_* environment
// variables. Command-line flags are applied last, by the cmd layer.
package config

import (
	"github.com/endosim/endosim/pk"
)

// Config contains process configuration shared by the CLI commands.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// CatalogPath points at a YAML catalog override; empty keeps the
	// shipped constants.
	CatalogPath string `koanf:"catalog_path"`

	// WeightKg is the body weight used when the input carries none
	// (simulating a regimen directly, without a dose file).
	WeightKg float64 `koanf:"weight_kg"`

	// Sampling-grid sizing; see pk.GridConfig.
	LookbackHours      float64 `koanf:"lookback_hours"`
	HorizonHalfLives   float64 `koanf:"horizon_half_lives"`
	SamplesPerHalfLife float64 `koanf:"samples_per_half_life"`
	MaxSamples         int     `koanf:"max_samples"`

	// Chart dimensions for the render command, in pixels.
	ChartWidth  int `koanf:"chart_width"`
	ChartHeight int `koanf:"chart_height"`
}

// New creates a Config holding the shipped defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		WeightKg:           70.0,
		LookbackHours:      pk.DefaultLookbackHours,
		HorizonHalfLives:   pk.DefaultHorizonHalfLives,
		SamplesPerHalfLife: pk.DefaultSamplesPerHalfLife,
		MaxSamples:         pk.DefaultMaxSamples,
		ChartWidth:         1000,
		ChartHeight:        600,
	}
}

// Grid returns the sampling-grid sizing carried by the config.
func (c *Config) Grid() pk.GridConfig {
	return pk.GridConfig{
		LookbackHours:      c.LookbackHours,
		HorizonHalfLives:   c.HorizonHalfLives,
		SamplesPerHalfLife: c.SamplesPerHalfLife,
		MaxSamples:         c.MaxSamples,
	}
}
