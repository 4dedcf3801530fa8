package pk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rampResult() SimulationResult {
	return SimulationResult{
		TimeHours: []float64{0, 1, 2},
		ConcPgML:  []float64{0, 10, 20},
	}
}

func TestInterpolate_EmptyResultReadsZero(t *testing.T) {
	assert.Equal(t, 0.0, Interpolate(SimulationResult{}, 12))
}

func TestInterpolate_BeforeFirstSampleReadsZero(t *testing.T) {
	assert.Equal(t, 0.0, Interpolate(rampResult(), -0.5))
}

func TestInterpolate_AtSampleReadsExactValue(t *testing.T) {
	res := rampResult()
	assert.Equal(t, 0.0, Interpolate(res, 0))
	assert.Equal(t, 10.0, Interpolate(res, 1))
	assert.Equal(t, 20.0, Interpolate(res, 2))
}

func TestInterpolate_BetweenSamplesIsLinear(t *testing.T) {
	res := rampResult()
	assert.InDelta(t, 5.0, Interpolate(res, 0.5), 1e-12)
	assert.InDelta(t, 17.5, Interpolate(res, 1.75), 1e-12)
}

func TestInterpolate_PastLastSampleExtendsFlat(t *testing.T) {
	assert.Equal(t, 20.0, Interpolate(rampResult(), 1e6))
}

func TestInterpolate_NaNTimeReadsZero(t *testing.T) {
	assert.Equal(t, 0.0, Interpolate(rampResult(), math.NaN()))
}
