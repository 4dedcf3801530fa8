// Defines the DoseEvent record that drives the simulation, the route and
// compound registries, and the per-route parameter payloads.

package pk

import (
	"fmt"
	"math"
)

// Route identifies how a dose enters the body. Each route maps onto one of
// the two contribution kinds during normalization: patch applications become
// infusions, everything else becomes a bolus.
type Route string

const (
	RouteInjection   Route = "injection"
	RouteOral        Route = "oral"
	RouteSublingual  Route = "sublingual"
	RouteGel         Route = "gel"
	RoutePatchApply  Route = "patch-apply"
	RoutePatchRemove Route = "patch-remove"
)

// validRoutes guards Validate and file loading. Keep in sync with the Route
// constants above.
var validRoutes = map[Route]bool{
	RouteInjection:   true,
	RouteOral:        true,
	RouteSublingual:  true,
	RouteGel:         true,
	RoutePatchApply:  true,
	RoutePatchRemove: true,
}

// Compound identifies the ester (or the free hormone) administered. Dose
// amounts are carried through the engine in estradiol-equivalent milligrams;
// the catalog molar factors convert raw ester mass at the entry layer.
type Compound string

const (
	CompoundEstradiol           Compound = "e2"
	CompoundEstradiolValerate   Compound = "ev"
	CompoundEstradiolCypionate  Compound = "ec"
	CompoundEstradiolEnanthate  Compound = "een"
	CompoundEstradiolBenzoate   Compound = "eb"
	CompoundEstradiolUndecylate Compound = "eun"
)

var validCompounds = map[Compound]bool{
	CompoundEstradiol:           true,
	CompoundEstradiolValerate:   true,
	CompoundEstradiolCypionate:  true,
	CompoundEstradiolEnanthate:  true,
	CompoundEstradiolBenzoate:   true,
	CompoundEstradiolUndecylate: true,
}

// KnownRoute reports whether the route name is registered.
func KnownRoute(r Route) bool { return validRoutes[r] }

// KnownCompound reports whether the compound name is registered.
func KnownCompound(c Compound) bool { return validCompounds[c] }

// SublingualTier selects a discrete holding-discipline profile for sublingual
// dosing. Higher tiers hold the tablet longer and absorb a larger fraction of
// the dose before it is swallowed.
type SublingualTier int

const (
	TierQuick SublingualTier = iota
	TierCasual
	TierStandard
	TierStrict
)

// tierNames maps file-facing tier names to tier indices.
var tierNames = map[string]SublingualTier{
	"quick":    TierQuick,
	"casual":   TierCasual,
	"standard": TierStandard,
	"strict":   TierStrict,
}

// ParseSublingualTier maps a tier name to its SublingualTier.
func ParseSublingualTier(name string) (SublingualTier, error) {
	tier, ok := tierNames[name]
	if !ok {
		return TierStandard, fmt.Errorf("unknown sublingual tier %q; valid: quick, casual, standard, strict", name)
	}
	return tier, nil
}

// SublingualParams selects the absorbed fraction for a sublingual dose. The
// two selection modes are mutually exclusive by construction: build with
// SublingualTierParams for a discrete tier or SublingualEfficiencyParams for
// a continuous fraction. A nil SublingualParams on a sublingual event falls
// back to TierStandard during normalization.
type SublingualParams struct {
	tier     SublingualTier
	theta    float64
	useTheta bool
}

// SublingualTierParams selects absorption by discrete tier. Tiers outside
// the known range fall back to TierStandard during normalization.
func SublingualTierParams(tier SublingualTier) *SublingualParams {
	return &SublingualParams{tier: tier}
}

// SublingualEfficiencyParams selects absorption by a continuous fraction
// theta in [0, 1]: theta is the absorbed fraction itself. Out-of-range values
// are clamped during normalization.
func SublingualEfficiencyParams(theta float64) *SublingualParams {
	return &SublingualParams{theta: theta, useTheta: true}
}

// PatchParams carries patch-specific dosing. A positive ReleaseRateUgPerDay
// puts the patch in rate mode (the labelled form, e.g. 100 ug/day); when the
// rate is zero the event's DoseMg is spread evenly over the worn interval.
type PatchParams struct {
	ReleaseRateUgPerDay float64 // Labelled release rate; 0 selects total-dose mode
}

// DoseEvent is one administration record in a dose history. Events are value
// inputs: the engine copies what it needs and never mutates or retains them.
type DoseEvent struct {
	ID string // Unique identifier, echoed into per-dose series

	Route    Route    // How the dose was administered
	Compound Compound // Which ester was administered

	TimeHours float64 // Administration time on the shared hours axis
	DoseMg    float64 // Estradiol-equivalent milligrams (0 for rate-mode patches and removals)

	Sublingual *SublingualParams // Sublingual route only, nil otherwise
	Patch      *PatchParams      // Patch-apply route only, nil otherwise
}

// Validate reports whether the event is well-formed. The engine itself drops
// malformed events with a warning instead of failing; entry layers call
// Validate so errors surface next to the record that caused them.
func (e DoseEvent) Validate() error {
	if !validRoutes[e.Route] {
		return fmt.Errorf("unknown route %q", e.Route)
	}
	if !validCompounds[e.Compound] {
		return fmt.Errorf("unknown compound %q", e.Compound)
	}
	if math.IsNaN(e.TimeHours) || math.IsInf(e.TimeHours, 0) {
		return fmt.Errorf("time must be finite, got %v", e.TimeHours)
	}
	if math.IsNaN(e.DoseMg) || math.IsInf(e.DoseMg, 0) || e.DoseMg < 0 {
		return fmt.Errorf("dose must be finite and non-negative, got %v", e.DoseMg)
	}
	if e.Sublingual != nil && e.Route != RouteSublingual {
		return fmt.Errorf("sublingual parameters are only valid on sublingual events")
	}
	if e.Patch != nil && e.Route != RoutePatchApply {
		return fmt.Errorf("patch parameters are only valid on patch-apply events")
	}
	switch e.Route {
	case RoutePatchRemove:
		if e.DoseMg != 0 {
			return fmt.Errorf("patch-remove carries no dose, got %v mg", e.DoseMg)
		}
	case RoutePatchApply:
		rate := 0.0
		if e.Patch != nil {
			rate = e.Patch.ReleaseRateUgPerDay
		}
		if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
			return fmt.Errorf("patch release rate must be finite and non-negative, got %v", rate)
		}
		if rate == 0 && e.DoseMg == 0 {
			return fmt.Errorf("patch-apply needs a release rate or a total dose")
		}
		if rate > 0 && e.DoseMg > 0 {
			return fmt.Errorf("patch-apply takes a release rate or a total dose, not both")
		}
	default:
		if e.DoseMg == 0 {
			return fmt.Errorf("dose must be positive for route %q", e.Route)
		}
		if e.Sublingual != nil && e.Sublingual.useTheta && math.IsNaN(e.Sublingual.theta) {
			return fmt.Errorf("sublingual efficiency must be a number")
		}
	}
	return nil
}

// String returns a human-readable one-line form of a DoseEvent.
func (e DoseEvent) String() string {
	return fmt.Sprintf("DoseEvent: (ID: %s, Route: %s, Compound: %s, TimeHours: %.2f, DoseMg: %g)",
		e.ID, e.Route, e.Compound, e.TimeHours, e.DoseMg)
}
