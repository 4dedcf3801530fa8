package pk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoseEvent_Validate_AcceptsWellFormedEvents(t *testing.T) {
	events := []DoseEvent{
		{ID: "a", Route: RouteInjection, Compound: CompoundEstradiolValerate, TimeHours: 0, DoseMg: 4.6},
		{ID: "b", Route: RouteOral, Compound: CompoundEstradiol, TimeHours: -48, DoseMg: 2},
		{ID: "c", Route: RouteSublingual, Compound: CompoundEstradiol, TimeHours: 12, DoseMg: 1, Sublingual: SublingualTierParams(TierQuick)},
		{ID: "d", Route: RouteSublingual, Compound: CompoundEstradiol, TimeHours: 14, DoseMg: 1, Sublingual: SublingualEfficiencyParams(0.4)},
		{ID: "e", Route: RouteGel, Compound: CompoundEstradiol, TimeHours: 20, DoseMg: 1.5},
		{ID: "f", Route: RoutePatchApply, Compound: CompoundEstradiol, TimeHours: 30, Patch: &PatchParams{ReleaseRateUgPerDay: 100}},
		{ID: "g", Route: RoutePatchApply, Compound: CompoundEstradiol, TimeHours: 40, DoseMg: 0.39},
		{ID: "h", Route: RoutePatchRemove, Compound: CompoundEstradiol, TimeHours: 114},
	}
	for _, e := range events {
		assert.NoError(t, e.Validate(), "event %s", e.ID)
	}
}

func TestDoseEvent_Validate_RejectsMalformedEvents(t *testing.T) {
	cases := []struct {
		name  string
		event DoseEvent
	}{
		{"unknown route", DoseEvent{Route: "intravenous", Compound: CompoundEstradiol, DoseMg: 1}},
		{"unknown compound", DoseEvent{Route: RouteInjection, Compound: "estrone", DoseMg: 1}},
		{"NaN time", DoseEvent{Route: RouteOral, Compound: CompoundEstradiol, TimeHours: math.NaN(), DoseMg: 1}},
		{"infinite time", DoseEvent{Route: RouteOral, Compound: CompoundEstradiol, TimeHours: math.Inf(1), DoseMg: 1}},
		{"negative dose", DoseEvent{Route: RouteOral, Compound: CompoundEstradiol, DoseMg: -2}},
		{"zero bolus dose", DoseEvent{Route: RouteInjection, Compound: CompoundEstradiolValerate, DoseMg: 0}},
		{"NaN dose", DoseEvent{Route: RouteOral, Compound: CompoundEstradiol, DoseMg: math.NaN()}},
		{"sublingual params on injection", DoseEvent{Route: RouteInjection, Compound: CompoundEstradiolValerate, DoseMg: 4, Sublingual: SublingualTierParams(TierCasual)}},
		{"patch params on oral", DoseEvent{Route: RouteOral, Compound: CompoundEstradiol, DoseMg: 2, Patch: &PatchParams{ReleaseRateUgPerDay: 50}}},
		{"patch with neither rate nor dose", DoseEvent{Route: RoutePatchApply, Compound: CompoundEstradiol}},
		{"patch with both rate and dose", DoseEvent{Route: RoutePatchApply, Compound: CompoundEstradiol, DoseMg: 0.39, Patch: &PatchParams{ReleaseRateUgPerDay: 100}}},
		{"dose on removal", DoseEvent{Route: RoutePatchRemove, Compound: CompoundEstradiol, DoseMg: 0.1}},
		{"NaN theta", DoseEvent{Route: RouteSublingual, Compound: CompoundEstradiol, DoseMg: 1, Sublingual: SublingualEfficiencyParams(math.NaN())}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.event.Validate())
		})
	}
}

func TestKnownRoute_MatchesRouteSet(t *testing.T) {
	for _, r := range []Route{RouteInjection, RouteOral, RouteSublingual, RouteGel, RoutePatchApply, RoutePatchRemove} {
		assert.True(t, KnownRoute(r), "route %s", r)
	}
	assert.False(t, KnownRoute("implant"))
	assert.False(t, KnownRoute(""))
}

func TestKnownCompound_MatchesCompoundSet(t *testing.T) {
	for _, c := range []Compound{CompoundEstradiol, CompoundEstradiolValerate, CompoundEstradiolCypionate, CompoundEstradiolEnanthate, CompoundEstradiolBenzoate, CompoundEstradiolUndecylate} {
		assert.True(t, KnownCompound(c), "compound %s", c)
	}
	assert.False(t, KnownCompound("progesterone"))
}

func TestParseSublingualTier_RoundTripsNames(t *testing.T) {
	for name, want := range tierNames {
		got, err := ParseSublingualTier(name)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSublingualTier("heroic")
	assert.Error(t, err)
}

func TestSublingualParams_Constructors(t *testing.T) {
	p := SublingualTierParams(TierStrict)
	assert.Equal(t, TierStrict, p.tier)
	assert.False(t, p.useTheta)

	q := SublingualEfficiencyParams(0.75)
	assert.True(t, q.useTheta)
	assert.Equal(t, 0.75, q.theta)
}

func TestDoseEvent_String_NamesRouteAndCompound(t *testing.T) {
	e := DoseEvent{ID: "x", Route: RouteInjection, Compound: CompoundEstradiolValerate, TimeHours: 12, DoseMg: 4.6}
	s := e.String()
	assert.Contains(t, s, "injection")
	assert.Contains(t, s, "ev")
}
