package pk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endosim/endosim/pk/internal/testutil"
)

// mixedHistory is a representative multi-route history used by several
// curve-level tests: weekly injections, a worn patch, and a sublingual dose.
func mixedHistory() []DoseEvent {
	return []DoseEvent{
		{ID: "inj-1", Route: RouteInjection, Compound: CompoundEstradiolValerate, TimeHours: 0, DoseMg: 4.6},
		{ID: "inj-2", Route: RouteInjection, Compound: CompoundEstradiolValerate, TimeHours: 168, DoseMg: 4.6},
		{ID: "patch-1", Route: RoutePatchApply, Compound: CompoundEstradiol, TimeHours: 200, Patch: &PatchParams{ReleaseRateUgPerDay: 100}},
		{ID: "patch-1-off", Route: RoutePatchRemove, Compound: CompoundEstradiol, TimeHours: 284},
		{ID: "sl-1", Route: RouteSublingual, Compound: CompoundEstradiol, TimeHours: 300, DoseMg: 1, Sublingual: SublingualTierParams(TierStrict)},
	}
}

func TestSimulate_EmptyHistory_ReturnsEmptyCurve(t *testing.T) {
	cat := DefaultCatalog()
	res := Simulate(nil, cat, DefaultSimConfig(70, 100))

	assert.Empty(t, res.TimeHours)
	assert.Empty(t, res.ConcPgML)
	assert.Equal(t, 0.0, Interpolate(res, 50))
}

func TestSimulate_AllEventsDropped_ReturnsEmptyCurve(t *testing.T) {
	// No catalog entry exists for free estradiol by injection.
	events := []DoseEvent{{ID: "x", Route: RouteInjection, Compound: CompoundEstradiol, TimeHours: 0, DoseMg: 5}}
	res := Simulate(events, DefaultCatalog(), DefaultSimConfig(70, 100))

	assert.Empty(t, res.TimeHours)
}

func TestSimulate_GridTimes_StrictlyIncreasing(t *testing.T) {
	res := Simulate(mixedHistory(), DefaultCatalog(), DefaultSimConfig(70, 400))

	require.NotEmpty(t, res.TimeHours)
	testutil.AssertStrictlyIncreasing(t, "grid times", res.TimeHours)
}

func TestSimulate_Concentrations_NeverNegative(t *testing.T) {
	res := Simulate(mixedHistory(), DefaultCatalog(), DefaultSimConfig(70, 400))

	require.NotEmpty(t, res.ConcPgML)
	testutil.AssertNonNegative(t, "total curve", res.ConcPgML)
}

func TestSimulate_GridCoversForwardHorizon(t *testing.T) {
	now := 400.0
	res := Simulate(mixedHistory(), DefaultCatalog(), DefaultSimConfig(70, now))

	require.NotEmpty(t, res.TimeHours)
	last := res.TimeHours[len(res.TimeHours)-1]
	if last < now {
		t.Errorf("grid ends at %.1f h, want >= now (%.1f h)", last, now)
	}
}

func TestSimulate_PerDose_SumsToTotal(t *testing.T) {
	// GIVEN a multi-route history simulated with per-dose series
	cfg := DefaultSimConfig(70, 400)
	cfg.PerDose = true
	res := Simulate(mixedHistory(), DefaultCatalog(), cfg)

	// THEN the per-dose series sum to the total at every grid point
	// (the patch removal marker itself contributes no series).
	require.Len(t, res.PerDose, 4)
	for i := range res.TimeHours {
		sum := 0.0
		for _, s := range res.PerDose {
			sum += s.ConcPgML[i]
		}
		testutil.AssertFloat64Equal(t, "superposed total", res.ConcPgML[i], sum, 1e-9)
	}
}

func TestConcentrationAt_Superposition_AddsContributions(t *testing.T) {
	cat := DefaultCatalog()
	vd := cat.VdLiters(70)
	evA := []DoseEvent{{ID: "a", Route: RouteInjection, Compound: CompoundEstradiolValerate, TimeHours: 0, DoseMg: 4.6}}
	evB := []DoseEvent{{ID: "b", Route: RouteOral, Compound: CompoundEstradiol, TimeHours: 24, DoseMg: 2}}

	a := NormalizeDoses(evA, cat)
	b := NormalizeDoses(evB, cat)
	both := NormalizeDoses(append(append([]DoseEvent{}, evA...), evB...), cat)

	for _, at := range []float64{-10, 0, 12, 24, 30, 100, 500} {
		want := ConcentrationAt(a, vd, at) + ConcentrationAt(b, vd, at)
		got := ConcentrationAt(both, vd, at)
		testutil.AssertFloat64Equal(t, "combined concentration", want, got, 1e-12)
	}
}

func TestConcentrationAt_ValerateSingleDose_PeaksAtAnalyticalTmax(t *testing.T) {
	// GIVEN a 10 mg estradiol-equivalent valerate depot at 70 kg
	cat := DefaultCatalog()
	vd := cat.VdLiters(70)
	doseMg := 10.0
	entry, ok := cat.Entry(CompoundEstradiolValerate, RouteInjection)
	require.True(t, ok)
	contribs := NormalizeDoses([]DoseEvent{
		{ID: "d", Route: RouteInjection, Compound: CompoundEstradiolValerate, TimeHours: 0, DoseMg: doseMg},
	}, cat)
	require.Len(t, contribs, 1)

	// WHEN evaluated at the analytical time-to-peak
	ka, ke := entry.KaPerHour, entry.KePerHour
	tmax := math.Log(ka/ke) / (ka - ke)
	got := ConcentrationAt(contribs, vd, tmax)

	// THEN the value matches the closed form and is a local maximum
	want := entry.F * doseMg * ka / (vd * (ka - ke)) *
		(math.Exp(-ke*tmax) - math.Exp(-ka*tmax)) * 1e6
	testutil.AssertFloat64Equal(t, "peak concentration", want, got, 1e-6)
	if before := ConcentrationAt(contribs, vd, tmax-5); before >= got {
		t.Errorf("concentration at tmax-5h = %.3f, want < peak %.3f", before, got)
	}
	if after := ConcentrationAt(contribs, vd, tmax+5); after >= got {
		t.Errorf("concentration at tmax+5h = %.3f, want < peak %.3f", after, got)
	}
	assert.InDelta(t, 48.2, tmax, 0.5)
}

func TestSimulate_PatchWashout_StrictlyDecreasingAfterRemoval(t *testing.T) {
	events := []DoseEvent{
		{ID: "p", Route: RoutePatchApply, Compound: CompoundEstradiol, TimeHours: 0, Patch: &PatchParams{ReleaseRateUgPerDay: 100}},
		{ID: "p-off", Route: RoutePatchRemove, Compound: CompoundEstradiol, TimeHours: 84},
	}
	res := Simulate(events, DefaultCatalog(), DefaultSimConfig(64, 120))

	require.NotEmpty(t, res.TimeHours)
	start := -1
	for i, at := range res.TimeHours {
		if at > 84 {
			start = i
			break
		}
	}
	require.GreaterOrEqual(t, start, 0, "grid must extend past removal")
	for i := start; i+1 < len(res.ConcPgML); i++ {
		if res.ConcPgML[i+1] >= res.ConcPgML[i] {
			t.Fatalf("washout not strictly decreasing at %.2f h: %v then %v",
				res.TimeHours[i+1], res.ConcPgML[i], res.ConcPgML[i+1])
		}
	}
}

func TestSimulate_PatchWhileWorn_ApproachesSteadyState(t *testing.T) {
	// 100 ug/day on 64 kg should settle in the labelled range while worn.
	events := []DoseEvent{
		{ID: "p", Route: RoutePatchApply, Compound: CompoundEstradiol, TimeHours: 0, Patch: &PatchParams{ReleaseRateUgPerDay: 100}},
	}
	cat := DefaultCatalog()
	contribs := NormalizeDoses(events, cat)
	level := ConcentrationAt(contribs, cat.VdLiters(64), 80)

	assert.Greater(t, level, 50.0)
	assert.Less(t, level, 120.0)
}

func TestTmaxBolus_KnownForms(t *testing.T) {
	assert.InDelta(t, math.Log(0.6/0.0513)/(0.6-0.0513), TmaxBolus(0.6, 0.0513), 1e-12)
	// Coinciding rates use the 1/ke limit.
	assert.InDelta(t, 1/0.05, TmaxBolus(0.05, 0.05), 1e-12)
	assert.Equal(t, 0.0, TmaxBolus(0, 0.05))
	assert.Equal(t, 0.0, TmaxBolus(0.05, -1))
}

func TestBolus_FlipFlopLimit_MatchesLinearForm(t *testing.T) {
	vd := 1960.0
	c := Contribution{Kind: KindBolus, StartHours: 0, DoseMg: 2, F: 1, KaPerHour: 0.05, KePerHour: 0.05}

	for _, dt := range []float64{0.5, 10, 40} {
		want := 1.0 * 2 * 0.05 * dt * math.Exp(-0.05*dt) / vd * 1e6
		testutil.AssertFloat64Equal(t, "limit form", want, c.concentrationAt(vd, dt), 1e-12)
	}
}

func TestBolus_NearEqualRates_ContinuousAcrossSwitch(t *testing.T) {
	// Just above the switching threshold the general form must agree with
	// the limit form.
	vd := 1960.0
	limit := Contribution{Kind: KindBolus, DoseMg: 2, F: 1, KaPerHour: 0.05, KePerHour: 0.05}
	general := Contribution{Kind: KindBolus, DoseMg: 2, F: 1, KaPerHour: 0.05 + 2e-9, KePerHour: 0.05}

	for _, dt := range []float64{1, 20, 100} {
		testutil.AssertFloat64Equal(t, "continuity at threshold",
			limit.concentrationAt(vd, dt), general.concentrationAt(vd, dt), 1e-5)
	}
}

func TestBuildGrid_CapsSampleCount(t *testing.T) {
	// A fast sublingual plus a very slow depot asks for far more samples
	// than the cap allows.
	events := []DoseEvent{
		{ID: "sl", Route: RouteSublingual, Compound: CompoundEstradiol, TimeHours: 0, DoseMg: 1},
		{ID: "un", Route: RouteInjection, Compound: CompoundEstradiolUndecylate, TimeHours: 0, DoseMg: 10},
	}
	cfg := DefaultSimConfig(70, 100)
	cfg.Grid.MaxSamples = 500
	res := Simulate(events, DefaultCatalog(), cfg)

	assert.Len(t, res.TimeHours, 500)
	testutil.AssertStrictlyIncreasing(t, "capped grid", res.TimeHours)
}

func TestSimulate_NowBeforeAllEvents_StillProducesFiniteCurve(t *testing.T) {
	events := []DoseEvent{
		{ID: "future", Route: RouteInjection, Compound: CompoundEstradiolValerate, TimeHours: 5000, DoseMg: 4.6},
	}
	res := Simulate(events, DefaultCatalog(), DefaultSimConfig(70, 0))

	require.NotEmpty(t, res.TimeHours)
	testutil.AssertStrictlyIncreasing(t, "grid times", res.TimeHours)
	testutil.AssertNonNegative(t, "curve", res.ConcPgML)
}

func TestSimulate_NonFiniteNow_FallsBackToHistoryEnd(t *testing.T) {
	events := []DoseEvent{
		{ID: "shot", Route: RouteInjection, Compound: CompoundEstradiolValerate, TimeHours: 240, DoseMg: 4.6},
	}
	for _, now := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		res := Simulate(events, DefaultCatalog(), DefaultSimConfig(70, now))

		require.NotEmpty(t, res.TimeHours)
		for i, at := range res.TimeHours {
			if math.IsNaN(at) || math.IsInf(at, 0) {
				t.Fatalf("now=%v: sample time %v at index %d is not finite", now, at, i)
			}
		}
		testutil.AssertStrictlyIncreasing(t, "grid times", res.TimeHours)
		testutil.AssertNonNegative(t, "curve", res.ConcPgML)
		// The window anchors on the dose instead of the bad clock.
		if last := res.TimeHours[len(res.TimeHours)-1]; last < 240 {
			t.Errorf("now=%v: grid ends at %.1f h, want past the dose at 240 h", now, last)
		}
	}
}

func TestSimulate_BadWeight_ClampedNotPoisoned(t *testing.T) {
	events := mixedHistory()
	for _, w := range []float64{math.NaN(), -70, 0} {
		res := Simulate(events, DefaultCatalog(), DefaultSimConfig(w, 400))
		require.NotEmpty(t, res.ConcPgML)
		testutil.AssertNonNegative(t, "curve with clamped weight", res.ConcPgML)
	}
}

func TestSimulate_Deterministic_SameInputsSameCurve(t *testing.T) {
	cfg := DefaultSimConfig(70, 400)
	a := Simulate(mixedHistory(), DefaultCatalog(), cfg)
	b := Simulate(mixedHistory(), DefaultCatalog(), cfg)

	require.Equal(t, len(a.TimeHours), len(b.TimeHours))
	for i := range a.TimeHours {
		if a.TimeHours[i] != b.TimeHours[i] || a.ConcPgML[i] != b.ConcPgML[i] {
			t.Fatalf("curves diverge at index %d", i)
		}
	}
}
