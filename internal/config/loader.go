package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ENDOSIM_CONFIG is set
//  3. env (prefix ENDOSIM_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided.
	if path := os.Getenv("ENDOSIM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Environment variables: ENDOSIM_LOG_LEVEL, ENDOSIM_WEIGHT_KG, ...
	// Map env keys like ENDOSIM_WEIGHT_KG -> weight_kg (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("ENDOSIM_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "endosim_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	// Unmarshal into a copy.
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("applying config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that all fields in the config are usable.
func (c *Config) Validate() error {
	if c.WeightKg <= 0 {
		return fmt.Errorf("weight_kg must be positive, got %v", c.WeightKg)
	}
	if c.LookbackHours < 0 {
		return fmt.Errorf("lookback_hours must be non-negative, got %v", c.LookbackHours)
	}
	if c.HorizonHalfLives <= 0 {
		return fmt.Errorf("horizon_half_lives must be positive, got %v", c.HorizonHalfLives)
	}
	if c.SamplesPerHalfLife <= 0 {
		return fmt.Errorf("samples_per_half_life must be positive, got %v", c.SamplesPerHalfLife)
	}
	if c.MaxSamples < 2 {
		return fmt.Errorf("max_samples must be at least 2, got %d", c.MaxSamples)
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("chart dimensions must be positive, got %dx%d", c.ChartWidth, c.ChartHeight)
	}
	return nil
}
