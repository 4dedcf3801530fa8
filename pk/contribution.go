// Normalizes dose events into closed-form contributions. Every route funnels
// into one of two release shapes here; the curve builder never branches on
// routes again.

package pk

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// ContributionKind discriminates the two closed-form release shapes.
type ContributionKind string

const (
	// KindBolus is first-order absorption of a finite dose (injections,
	// oral, sublingual, gel).
	KindBolus ContributionKind = "bolus"
	// KindInfusion is zero-order release over a worn interval (patches).
	KindInfusion ContributionKind = "infusion"
)

// ugPerDayPerMgPerHour converts labelled patch rates: 1 mg/h = 24000 ug/day.
const ugPerDayPerMgPerHour = 24000.0

// Contribution is one normalized release: everything the concentration
// formulas need, with route, ester, and patch-interval semantics already
// resolved. Exactly one of the two field groups is meaningful per Kind.
type Contribution struct {
	EventID string           // Originating dose event
	Kind    ContributionKind // Release shape

	StartHours float64 // Release start on the shared hours axis
	KePerHour  float64 // Elimination rate constant (both kinds)

	// Bolus fields.
	DoseMg    float64 // Estradiol-equivalent dose
	F         float64 // Effective bioavailable fraction
	KaPerHour float64 // Absorption rate constant

	// Infusion fields.
	RateMgPerHour float64 // Zero-order release rate while worn
	EndHours      float64 // Release stop (patch removal or lifetime cap)
}

// terminalRatePerHour is the rate constant of the slowest decay phase. Depot
// boluses are absorption-limited (flip-flop), so the terminal slope is the
// smaller of ka and ke.
func (c Contribution) terminalRatePerHour() float64 {
	if c.Kind == KindInfusion {
		return c.KePerHour
	}
	return math.Min(c.KaPerHour, c.KePerHour)
}

// fastestRatePerHour is the largest rate constant present, which sets the
// sharpest curve feature the sampling grid must resolve.
func (c Contribution) fastestRatePerHour() float64 {
	if c.Kind == KindInfusion {
		return c.KePerHour
	}
	return math.Max(c.KaPerHour, c.KePerHour)
}

// openPatch tracks a worn patch between its apply event and whatever closes
// it (a removal, or the catalog lifetime cap).
type openPatch struct {
	eventIdx int
	endHours float64
	matched  bool
}

// NormalizeDoses resolves a dose history into contributions. Events are
// value inputs: the slice is copied before sorting and never retained.
// Malformed or unknown records are dropped with a warning rather than
// failing the run; one bad line in a years-long history should cost that
// line, not the curve.
func NormalizeDoses(events []DoseEvent, cat *Catalog) []Contribution {
	// Filter before sorting: a NaN time would poison the sort comparator
	// and could leave valid events out of order.
	sorted := make([]DoseEvent, 0, len(events))
	for _, e := range events {
		if math.IsNaN(e.TimeHours) || math.IsInf(e.TimeHours, 0) {
			logrus.Warnf("dropping %s: time is not finite", e)
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeHours < sorted[j].TimeHours
	})

	patchEnds := matchPatches(sorted, cat)

	contribs := make([]Contribution, 0, len(sorted))
	for i, e := range sorted {
		switch e.Route {
		case RoutePatchRemove:
			// Consumed by matchPatches; carries no release of its own.
			continue
		case RoutePatchApply:
			c, ok := normalizePatch(e, patchEnds[i], cat)
			if ok {
				contribs = append(contribs, c)
			}
		default:
			c, ok := normalizeBolus(e, cat)
			if ok {
				contribs = append(contribs, c)
			}
		}
	}
	return contribs
}

// matchPatches pairs removals with applications first-in-first-out: a
// removal closes the earliest still-worn patch of the same compound applied
// at or before it. Applications that never match are closed by the catalog
// lifetime cap. Events must be finite-timed and sorted; returns end times
// indexed by position in the sorted events.
func matchPatches(sorted []DoseEvent, cat *Catalog) map[int]float64 {
	open := make(map[Compound][]*openPatch)
	ends := make(map[int]float64)
	for i, e := range sorted {
		switch e.Route {
		case RoutePatchApply:
			p := &openPatch{eventIdx: i, endHours: e.TimeHours + cat.patchLifetimeHours}
			open[e.Compound] = append(open[e.Compound], p)
			ends[i] = p.endHours
		case RoutePatchRemove:
			matched := false
			for _, p := range open[e.Compound] {
				if p.matched || sorted[p.eventIdx].TimeHours > e.TimeHours {
					continue
				}
				p.matched = true
				ends[p.eventIdx] = e.TimeHours
				matched = true
				break
			}
			if !matched {
				logrus.Warnf("dropping %s: no worn patch to remove", e)
			}
		}
	}
	return ends
}

// normalizePatch turns a patch application into a zero-order infusion.
// Rate-mode patches release at the labelled rate; total-dose patches spread
// the dose evenly over the worn interval.
func normalizePatch(e DoseEvent, endHours float64, cat *Catalog) (Contribution, bool) {
	entry, ok := cat.Entry(e.Compound, RoutePatchApply)
	if !ok {
		logrus.Warnf("dropping %s: no catalog entry for compound/route", e)
		return Contribution{}, false
	}
	c := Contribution{
		EventID:    e.ID,
		Kind:       KindInfusion,
		StartHours: e.TimeHours,
		EndHours:   endHours,
		KePerHour:  entry.KePerHour,
	}
	rate := 0.0
	if e.Patch != nil {
		rate = e.Patch.ReleaseRateUgPerDay
	}
	switch {
	case rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate):
		c.RateMgPerHour = rate / ugPerDayPerMgPerHour
	case math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0:
		logrus.Warnf("dropping %s: patch release rate %v is not usable", e, rate)
		return Contribution{}, false
	default:
		// Total-dose mode.
		if math.IsNaN(e.DoseMg) || math.IsInf(e.DoseMg, 0) || e.DoseMg <= 0 {
			logrus.Warnf("dropping %s: patch needs a release rate or a positive dose", e)
			return Contribution{}, false
		}
		worn := endHours - e.TimeHours
		if worn <= 0 {
			logrus.Warnf("dropping %s: patch removed at application time", e)
			return Contribution{}, false
		}
		c.RateMgPerHour = e.DoseMg / worn
	}
	return c, true
}

// normalizeBolus turns a discrete dose into a first-order bolus. The
// effective bioavailable fraction folds in the sublingual tier or continuous
// efficiency when the route calls for it.
func normalizeBolus(e DoseEvent, cat *Catalog) (Contribution, bool) {
	entry, ok := cat.Entry(e.Compound, e.Route)
	if !ok {
		logrus.Warnf("dropping %s: no catalog entry for compound/route", e)
		return Contribution{}, false
	}
	if math.IsNaN(e.DoseMg) || math.IsInf(e.DoseMg, 0) || e.DoseMg <= 0 {
		logrus.Warnf("dropping %s: dose must be positive", e)
		return Contribution{}, false
	}
	f := entry.F
	if e.Route == RouteSublingual {
		f = entry.F * cat.sublingualEfficiency(e.Sublingual)
	}
	return Contribution{
		EventID:    e.ID,
		Kind:       KindBolus,
		StartHours: e.TimeHours,
		DoseMg:     e.DoseMg,
		F:          f,
		KaPerHour:  entry.KaPerHour,
		KePerHour:  entry.KePerHour,
	}, true
}
