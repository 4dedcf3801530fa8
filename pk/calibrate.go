// Fits a piecewise-linear correction factor from measured labs against the
// simulated curve, so output layers can bend a chart toward observed levels
// without touching the model.

package pk

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// minPredictedPgML floors the denominator of a calibration ratio. Labs drawn
// where the model predicts essentially zero carry no usable ratio.
const minPredictedPgML = 1e-6

// LabResult is one measured blood level.
type LabResult struct {
	TimeHours float64 // Draw time on the shared hours axis
	ConcPgML  float64 // Measured total estradiol
}

// CorrectionFunc scales a predicted concentration at a given time.
type CorrectionFunc func(timeHours float64) float64

// Calibrate compares measured labs against a simulated curve and returns a
// time-dependent correction factor: measured over predicted at each usable
// lab, blended linearly between labs, and 1.0 outside the labs' span. Fewer
// than two usable labs yield the identity correction.
//
// The correction is an output-layer adjustment. It never feeds back into the
// model, so simulating again with the same history reproduces the same
// uncorrected curve.
func Calibrate(res SimulationResult, labs []LabResult) CorrectionFunc {
	identity := func(float64) float64 { return 1.0 }

	// Filter before sorting: a NaN draw time would poison the sort
	// comparator and could leave valid labs out of order.
	sorted := make([]LabResult, 0, len(labs))
	for _, lab := range labs {
		if math.IsNaN(lab.TimeHours) || math.IsInf(lab.TimeHours, 0) {
			logrus.Warnf("skipping lab: time %v is not finite", lab.TimeHours)
			continue
		}
		if math.IsNaN(lab.ConcPgML) || math.IsInf(lab.ConcPgML, 0) || lab.ConcPgML < 0 {
			logrus.Warnf("skipping lab at %v h: measured %v pg/mL is not usable", lab.TimeHours, lab.ConcPgML)
			continue
		}
		sorted = append(sorted, lab)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeHours < sorted[j].TimeHours
	})

	var times, ratios []float64
	for _, lab := range sorted {
		pred := Interpolate(res, lab.TimeHours)
		if pred < minPredictedPgML {
			logrus.Warnf("skipping lab at %v h: predicted level there is ~0", lab.TimeHours)
			continue
		}
		if n := len(times); n > 0 && times[n-1] == lab.TimeHours {
			logrus.Warnf("skipping duplicate lab at %v h", lab.TimeHours)
			continue
		}
		times = append(times, lab.TimeHours)
		ratios = append(ratios, lab.ConcPgML/pred)
	}
	if len(times) < 2 {
		logrus.Debugf("%d usable labs, keeping the identity correction", len(times))
		return identity
	}

	last := len(times) - 1
	return func(t float64) float64 {
		if math.IsNaN(t) || t < times[0] || t > times[last] {
			return 1.0
		}
		i := sort.SearchFloat64s(times, t)
		if times[i] == t {
			return ratios[i]
		}
		t0, t1 := times[i-1], times[i]
		frac := (t - t0) / (t1 - t0)
		return ratios[i-1] + frac*(ratios[i]-ratios[i-1])
	}
}
