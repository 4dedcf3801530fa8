// Builds the concentration curve: closed-form per-contribution evaluation,
// sampling-grid construction, and linear superposition across the history.

package pk

import (
	"math"

	"github.com/sirupsen/logrus"
)

const (
	// pgPerMLPerMgPerL converts model concentrations (mg/L) to the pg/mL
	// unit labs report.
	pgPerMLPerMgPerL = 1e6

	// epsilonRatePerHour bounds |ka - ke| below which the bolus form
	// switches to its ka -> ke limit; the general form divides by the
	// difference and loses precision first.
	epsilonRatePerHour = 1e-9
)

// DoseSeries is one contribution's share of a simulated curve.
type DoseSeries struct {
	EventID  string    // Originating dose event
	ConcPgML []float64 // Aligned with SimulationResult.TimeHours
}

// SimulationResult is a sampled total concentration curve. TimeHours is
// strictly increasing, ConcPgML is aligned index-for-index and never
// negative. PerDose is populated only when SimConfig.PerDose is set.
type SimulationResult struct {
	TimeHours []float64    // Sample times on the shared hours axis
	ConcPgML  []float64    // Total concentration at each sample
	PerDose   []DoseSeries // Optional per-contribution breakdown
}

// Simulate renders a dose history into a sampled concentration curve.
// The engine is pure: "now" is an explicit input, events are copied, and
// identical inputs produce identical output. Histories that normalize to
// nothing return an empty curve.
func Simulate(events []DoseEvent, cat *Catalog, cfg SimConfig) SimulationResult {
	contribs := NormalizeDoses(events, cat)
	if len(contribs) == 0 {
		logrus.Debugf("no usable contributions in %d events, returning an empty curve", len(events))
		return SimulationResult{}
	}
	vd := cat.VdLiters(cfg.WeightKg)
	times := buildGrid(contribs, cfg)

	concs := make([]float64, len(times))
	var perDose []DoseSeries
	if cfg.PerDose {
		perDose = make([]DoseSeries, len(contribs))
		for i, c := range contribs {
			perDose[i] = DoseSeries{EventID: c.EventID, ConcPgML: make([]float64, len(times))}
		}
	}
	for ti, t := range times {
		total := 0.0
		for ci, c := range contribs {
			v := c.concentrationAt(vd, t)
			total += v
			if cfg.PerDose {
				perDose[ci].ConcPgML[ti] = v
			}
		}
		concs[ti] = total
	}
	return SimulationResult{TimeHours: times, ConcPgML: concs, PerDose: perDose}
}

// ConcentrationAt evaluates the exact superposed concentration at one time,
// outside any sampling grid. Charts read the sampled curve; point queries
// (peak checks, lab-time predictions) use this to avoid interpolation error.
func ConcentrationAt(contribs []Contribution, vdLiters, timeHours float64) float64 {
	total := 0.0
	for _, c := range contribs {
		total += c.concentrationAt(vdLiters, timeHours)
	}
	return total
}

// TmaxBolus returns the analytical time from administration to peak for a
// first-order bolus: ln(ka/ke) / (ka - ke), with the 1/ke limit when the two
// rates coincide. Non-positive rates return 0.
func TmaxBolus(kaPerHour, kePerHour float64) float64 {
	if kaPerHour <= 0 || kePerHour <= 0 {
		return 0
	}
	if math.Abs(kaPerHour-kePerHour) < epsilonRatePerHour {
		return 1 / kePerHour
	}
	return math.Log(kaPerHour/kePerHour) / (kaPerHour - kePerHour)
}

// concentrationAt evaluates one contribution at time t, in pg/mL.
func (c Contribution) concentrationAt(vdLiters, t float64) float64 {
	if t < c.StartHours {
		return 0
	}
	var mgPerL float64
	switch c.Kind {
	case KindInfusion:
		mgPerL = c.infusionMgPerL(vdLiters, t)
	default:
		mgPerL = c.bolusMgPerL(vdLiters, t)
	}
	v := mgPerL * pgPerMLPerMgPerL
	if v < 0 {
		// Round-off at the release start can dip a hair below zero.
		return 0
	}
	return v
}

// bolusMgPerL is the one-compartment first-order absorption form (Bateman).
func (c Contribution) bolusMgPerL(vd, t float64) float64 {
	dt := t - c.StartHours
	if math.Abs(c.KaPerHour-c.KePerHour) < epsilonRatePerHour {
		// ka -> ke limit of the general form.
		return c.F * c.DoseMg * c.KePerHour * dt * math.Exp(-c.KePerHour*dt) / vd
	}
	lead := c.F * c.DoseMg * c.KaPerHour / (vd * (c.KaPerHour - c.KePerHour))
	return lead * (math.Exp(-c.KePerHour*dt) - math.Exp(-c.KaPerHour*dt))
}

// infusionMgPerL is zero-order release toward steady state while worn, then
// first-order washout from the level reached at removal.
func (c Contribution) infusionMgPerL(vd, t float64) float64 {
	css := c.RateMgPerHour / (vd * c.KePerHour)
	if t < c.EndHours {
		return css * (1 - math.Exp(-c.KePerHour*(t-c.StartHours)))
	}
	atRemoval := css * (1 - math.Exp(-c.KePerHour*(c.EndHours-c.StartHours)))
	return atRemoval * math.Exp(-c.KePerHour*(t-c.EndHours))
}

// buildGrid sizes the sampling grid: the span runs from the earlier of the
// first event and the lookback window to "now" plus the forward horizon, and
// the step resolves the shortest half-life present. A non-finite "now" falls
// back to the end of the history. Requires at least one contribution.
func buildGrid(contribs []Contribution, cfg SimConfig) []float64 {
	g := cfg.Grid.normalized()

	earliest := math.Inf(1)
	latest := math.Inf(-1)
	slowestRate := math.Inf(1)
	fastestRate := 0.0
	for _, c := range contribs {
		earliest = math.Min(earliest, c.StartHours)
		latest = math.Max(latest, c.StartHours)
		if c.Kind == KindInfusion {
			latest = math.Max(latest, c.EndHours)
		}
		slowestRate = math.Min(slowestRate, c.terminalRatePerHour())
		fastestRate = math.Max(fastestRate, c.fastestRatePerHour())
	}

	// A NaN or infinite "now" would smear the whole grid non-finite.
	now := cfg.NowHours
	if math.IsNaN(now) || math.IsInf(now, 0) {
		logrus.Warnf("now %v h is not usable, using %v h", now, latest)
		now = latest
	}

	start := math.Min(earliest, now-g.LookbackHours)
	forward := g.HorizonHalfLives * math.Ln2 / slowestRate
	end := now + forward
	span := end - start

	step := math.Ln2 / fastestRate / g.SamplesPerHalfLife
	rawN := math.Ceil(span/step) + 1
	var n int
	if rawN > float64(g.MaxSamples) {
		logrus.Warnf("grid wants %.0f samples, capping at %d and widening the step", rawN, g.MaxSamples)
		n = g.MaxSamples
		step = span / float64(n-1)
	} else {
		n = int(rawN)
		if n < 2 {
			n = 2
			step = span
		}
	}

	times := make([]float64, n)
	for i := range times {
		times[i] = start + float64(i)*step
	}
	return times
}
