// Reads a sampled curve at arbitrary times.

package pk

import (
	"math"
	"sort"
)

// Interpolate evaluates a sampled curve at an arbitrary time. Before the
// first sample there is no modelled drug, so the value is 0; between samples
// the curve is linear; past the last sample the final value extends flat.
// An empty result reads 0 everywhere.
func Interpolate(res SimulationResult, timeHours float64) float64 {
	times, concs := res.TimeHours, res.ConcPgML
	if len(times) == 0 || math.IsNaN(timeHours) {
		return 0
	}
	if timeHours < times[0] {
		return 0
	}
	last := len(times) - 1
	if timeHours >= times[last] {
		return concs[last]
	}
	// Smallest i with times[i] >= timeHours; the bracketing interval is
	// [i-1, i] because both edges were handled above.
	i := sort.SearchFloat64s(times, timeHours)
	if times[i] == timeHours {
		return concs[i]
	}
	t0, t1 := times[i-1], times[i]
	frac := (timeHours - t0) / (t1 - t0)
	return concs[i-1] + frac*(concs[i]-concs[i-1])
}
