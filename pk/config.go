package pk

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Grid sizing defaults. The horizon extends past "now" until the slowest
// contribution has decayed through several terminal half-lives, and the step
// is small enough to resolve the sharpest absorption peak in the history.
const (
	// DefaultLookbackHours fixes the left edge of the sampling window
	// relative to "now" when the history starts later than that. One week
	// gives charts a stable frame for sparse histories.
	DefaultLookbackHours = 168.0

	// DefaultHorizonHalfLives extends the grid past "now" by this many
	// terminal half-lives of the slowest contribution. Five half-lives
	// leave ~3% of the final dose, below charting resolution.
	DefaultHorizonHalfLives = 5.0

	// DefaultSamplesPerHalfLife sets grid density against the shortest
	// half-life present so fast sublingual peaks are not aliased.
	DefaultSamplesPerHalfLife = 100.0

	// DefaultMaxSamples caps the grid size. Long multi-year histories with
	// fast routes would otherwise request millions of points; the cap
	// widens the step and logs a warning instead.
	DefaultMaxSamples = 200000
)

// GridConfig groups sampling-grid parameters for Simulate.
type GridConfig struct {
	LookbackHours      float64 // window start is min(earliest event, now - lookback)
	HorizonHalfLives   float64 // forward horizon in slowest terminal half-lives past "now"
	SamplesPerHalfLife float64 // grid density against the shortest half-life present
	MaxSamples         int     // hard cap on grid points (step widens to fit)
}

// DefaultGridConfig returns the shipped grid sizing.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		LookbackHours:      DefaultLookbackHours,
		HorizonHalfLives:   DefaultHorizonHalfLives,
		SamplesPerHalfLife: DefaultSamplesPerHalfLife,
		MaxSamples:         DefaultMaxSamples,
	}
}

// SimConfig groups the per-run simulation parameters. Time never comes from
// the wall clock: NowHours is explicit so runs are reproducible and testable.
type SimConfig struct {
	WeightKg float64    // body weight; sets the distribution volume
	NowHours float64    // "now" on the shared hours axis
	Grid     GridConfig // sampling-grid sizing
	PerDose  bool       // also emit one series per contribution
}

// DefaultSimConfig returns a SimConfig with shipped grid sizing.
func DefaultSimConfig(weightKg, nowHours float64) SimConfig {
	return SimConfig{
		WeightKg: weightKg,
		NowHours: nowHours,
		Grid:     DefaultGridConfig(),
	}
}

// normalized returns a copy with unusable grid values replaced by defaults.
// The engine warns and keeps going; a bad knob must not kill a run.
func (g GridConfig) normalized() GridConfig {
	out := g
	if math.IsNaN(out.LookbackHours) || math.IsInf(out.LookbackHours, 0) || out.LookbackHours < 0 {
		logrus.Warnf("lookback %v h is not usable, using %v h", out.LookbackHours, DefaultLookbackHours)
		out.LookbackHours = DefaultLookbackHours
	}
	if math.IsNaN(out.HorizonHalfLives) || math.IsInf(out.HorizonHalfLives, 0) || out.HorizonHalfLives <= 0 {
		logrus.Warnf("horizon %v half-lives is not usable, using %v", out.HorizonHalfLives, DefaultHorizonHalfLives)
		out.HorizonHalfLives = DefaultHorizonHalfLives
	}
	if math.IsNaN(out.SamplesPerHalfLife) || math.IsInf(out.SamplesPerHalfLife, 0) || out.SamplesPerHalfLife <= 0 {
		logrus.Warnf("samples per half-life %v is not usable, using %v", out.SamplesPerHalfLife, DefaultSamplesPerHalfLife)
		out.SamplesPerHalfLife = DefaultSamplesPerHalfLife
	}
	if out.MaxSamples < 2 {
		logrus.Warnf("max samples %d is not usable, using %d", out.MaxSamples, DefaultMaxSamples)
		out.MaxSamples = DefaultMaxSamples
	}
	return out
}
