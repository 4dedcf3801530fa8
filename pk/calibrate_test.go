package pk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/endosim/endosim/pk/internal/testutil"
)

// flatResult is a constant 100 pg/mL curve, which makes every calibration
// ratio equal to measured/100.
func flatResult() SimulationResult {
	return SimulationResult{
		TimeHours: []float64{0, 50, 100},
		ConcPgML:  []float64{100, 100, 100},
	}
}

func TestCalibrate_NoLabs_Identity(t *testing.T) {
	corr := Calibrate(flatResult(), nil)
	assert.Equal(t, 1.0, corr(50))
}

func TestCalibrate_SingleLab_Identity(t *testing.T) {
	corr := Calibrate(flatResult(), []LabResult{{TimeHours: 50, ConcPgML: 120}})
	assert.Equal(t, 1.0, corr(50))
}

func TestCalibrate_TwoLabs_RatioAtLabsLinearBetween(t *testing.T) {
	// GIVEN labs at 1.5x and 0.5x the predicted level
	labs := []LabResult{
		{TimeHours: 20, ConcPgML: 150},
		{TimeHours: 80, ConcPgML: 50},
	}
	corr := Calibrate(flatResult(), labs)

	// THEN the factor hits the ratios at the labs and blends between them
	testutil.AssertFloat64Equal(t, "factor at first lab", 1.5, corr(20), 1e-12)
	testutil.AssertFloat64Equal(t, "factor at second lab", 0.5, corr(80), 1e-12)
	testutil.AssertFloat64Equal(t, "factor at midpoint", 1.0, corr(50), 1e-12)
	testutil.AssertFloat64Equal(t, "factor at quarter point", 1.25, corr(35), 1e-12)
}

func TestCalibrate_OutsideLabSpan_ReturnsOne(t *testing.T) {
	labs := []LabResult{
		{TimeHours: 20, ConcPgML: 150},
		{TimeHours: 80, ConcPgML: 50},
	}
	corr := Calibrate(flatResult(), labs)

	assert.Equal(t, 1.0, corr(10))
	assert.Equal(t, 1.0, corr(90))
	assert.Equal(t, 1.0, corr(math.NaN()))
}

func TestCalibrate_SkipsLabsWherePredictionIsZero(t *testing.T) {
	// The curve is zero at its first sample, so a lab drawn there has no
	// usable ratio and only one lab survives.
	res := SimulationResult{
		TimeHours: []float64{0, 100},
		ConcPgML:  []float64{0, 100},
	}
	labs := []LabResult{
		{TimeHours: 0, ConcPgML: 80},
		{TimeHours: 50, ConcPgML: 100},
	}
	corr := Calibrate(res, labs)

	assert.Equal(t, 1.0, corr(50))
}

func TestCalibrate_SkipsUnusableMeasurements(t *testing.T) {
	labs := []LabResult{
		{TimeHours: math.NaN(), ConcPgML: 100},
		{TimeHours: 30, ConcPgML: -5},
		{TimeHours: 40, ConcPgML: math.Inf(1)},
		{TimeHours: 20, ConcPgML: 150},
		{TimeHours: 80, ConcPgML: 50},
	}
	corr := Calibrate(flatResult(), labs)

	testutil.AssertFloat64Equal(t, "factor at first usable lab", 1.5, corr(20), 1e-12)
	testutil.AssertFloat64Equal(t, "factor at second usable lab", 0.5, corr(80), 1e-12)
}

func TestCalibrate_DuplicateDrawTimes_KeepsFirst(t *testing.T) {
	labs := []LabResult{
		{TimeHours: 20, ConcPgML: 150},
		{TimeHours: 20, ConcPgML: 999},
		{TimeHours: 80, ConcPgML: 50},
	}
	corr := Calibrate(flatResult(), labs)

	testutil.AssertFloat64Equal(t, "factor at duplicated draw", 1.5, corr(20), 1e-12)
}

func TestCalibrate_UnsortedLabs_SortedWithoutMutatingInput(t *testing.T) {
	labs := []LabResult{
		{TimeHours: 80, ConcPgML: 50},
		{TimeHours: 20, ConcPgML: 150},
	}
	corr := Calibrate(flatResult(), labs)

	testutil.AssertFloat64Equal(t, "factor at earlier lab", 1.5, corr(20), 1e-12)
	assert.Equal(t, 80.0, labs[0].TimeHours)
}

func TestCalibrate_DoesNotFeedBackIntoSimulation(t *testing.T) {
	events := []DoseEvent{
		{ID: "d", Route: RouteInjection, Compound: CompoundEstradiolValerate, TimeHours: 0, DoseMg: 4.6},
	}
	cat := DefaultCatalog()
	cfg := DefaultSimConfig(70, 200)
	before := Simulate(events, cat, cfg)
	Calibrate(before, []LabResult{{TimeHours: 48, ConcPgML: 300}, {TimeHours: 96, ConcPgML: 200}})
	after := Simulate(events, cat, cfg)

	for i := range before.ConcPgML {
		if before.ConcPgML[i] != after.ConcPgML[i] {
			t.Fatalf("curve changed after calibration at index %d", i)
		}
	}
}
