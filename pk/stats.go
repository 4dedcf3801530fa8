// Summary statistics over a window of a simulated curve.

package pk

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates one window of a sampled curve.
type Summary struct {
	Samples     int     // Grid points inside the window
	MeanPgML    float64 // Arithmetic mean over the window samples
	PeakPgML    float64 // Highest sample in the window
	PeakHours   float64 // Grid time of the peak sample
	TroughPgML  float64 // Lowest sample in the window
	TroughHours float64 // Grid time of the trough sample
	AUCPgHPerML float64 // Trapezoidal area under the curve, pg·h/mL
}

// Summarize aggregates the window [fromHours, toHours] of a sampled curve.
// Windows covering no samples return a zero Summary; the AUC needs at least
// two samples and is 0 otherwise.
func Summarize(res SimulationResult, fromHours, toHours float64) Summary {
	var s Summary
	if fromHours > toHours {
		fromHours, toHours = toHours, fromHours
	}
	times, concs := res.TimeHours, res.ConcPgML
	lo := sort.SearchFloat64s(times, fromHours)
	hi := sort.SearchFloat64s(times, toHours)
	if hi < len(times) && times[hi] == toHours {
		hi++
	}
	if lo >= hi {
		return s
	}
	window := concs[lo:hi]
	s.Samples = len(window)
	s.MeanPgML = stat.Mean(window, nil)

	s.PeakPgML, s.PeakHours = window[0], times[lo]
	s.TroughPgML, s.TroughHours = window[0], times[lo]
	for i, v := range window {
		if v > s.PeakPgML {
			s.PeakPgML, s.PeakHours = v, times[lo+i]
		}
		if v < s.TroughPgML {
			s.TroughPgML, s.TroughHours = v, times[lo+i]
		}
	}
	if s.Samples >= 2 {
		s.AUCPgHPerML = integrate.Trapezoidal(times[lo:hi], window)
	}
	return s
}

// String returns a human-readable one-line form of a Summary.
func (s Summary) String() string {
	return fmt.Sprintf("Summary: (Samples: %d, Mean: %.1f pg/mL, Peak: %.1f pg/mL @ %.1f h, Trough: %.1f pg/mL @ %.1f h, AUC: %.0f pg·h/mL)",
		s.Samples, s.MeanPgML, s.PeakPgML, s.PeakHours, s.TroughPgML, s.TroughHours, s.AUCPgHPerML)
}
