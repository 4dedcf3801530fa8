// Defines the pharmacokinetic parameter catalog: molar conversion factors,
// per-(compound, route) kinetic entries, sublingual tier fractions, and the
// distribution-volume constant. Ships literature-derived defaults that can be
// overridden from a YAML file.

package pk

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// defaultVdPerKgLiters is the apparent volume of distribution per
	// kilogram of body weight for the one-compartment estradiol model.
	// Estradiol distributes far beyond plasma (high tissue and SHBG
	// binding), so the apparent volume is large; 28 L/kg reproduces
	// published single-dose peaks for intramuscular esters at typical
	// body weights.
	defaultVdPerKgLiters = 28.0

	// defaultPatchLifetimeHours closes a patch application that never got
	// a matching removal. 84 h is the labelled wear time of twice-weekly
	// matrix patches (3.5 days).
	defaultPatchLifetimeHours = 84.0
)

// defaultTierFractions are absorbed fractions per sublingual tier. The tier
// models holding discipline: how long the tablet stays under the tongue
// before the remainder is swallowed (swallowed estradiol is mostly lost to
// first-pass metabolism).
var defaultTierFractions = [4]float64{
	TierQuick:    0.12,
	TierCasual:   0.17,
	TierStandard: 0.23,
	TierStrict:   0.30,
}

// defaultMolarFactors convert milligrams of ester to milligrams of estradiol
// by molecular weight ratio (estradiol 272.38 g/mol over the ester weight).
var defaultMolarFactors = map[Compound]float64{
	CompoundEstradiol:           1.0,
	CompoundEstradiolValerate:   0.7640, // 272.38 / 356.51
	CompoundEstradiolCypionate:  0.6868, // 272.38 / 396.57
	CompoundEstradiolEnanthate:  0.7083, // 272.38 / 384.56
	CompoundEstradiolBenzoate:   0.7234, // 272.38 / 376.50
	CompoundEstradiolUndecylate: 0.6181, // 272.38 / 440.67
}

// CatalogEntry holds the kinetic constants for one (compound, route) pair.
type CatalogEntry struct {
	F         float64 // Bioavailable fraction in [0, 1]; sublingual entries keep 1.0 and defer to the dose's tier or efficiency value
	KaPerHour float64 // First-order absorption rate constant (unused for patch routes)
	KePerHour float64 // First-order elimination rate constant
}

// defaultEntries are the shipped kinetic constants. Absorption constants for
// the depot esters are fit so that the analytical time-to-peak and terminal
// half-life land on published single-dose profiles: intramuscular depots are
// absorption-limited (ka < ke, flip-flop kinetics), so the terminal slope is
// ka, not ke.
//
//	compound/route      Tmax      terminal t=1/2
//	ev/injection        ~48 h     ~3.5 d
//	eb/injection        ~15 h     ~30 h
//	ec/injection        ~3.5 d    ~8 d
//	een/injection       ~4.3 d    ~10.7 d
//	eun/injection       ~6 d      ~20.8 d
//	e2/oral             ~4.5 h    ~13.5 h
//	e2/sublingual       ~2 h      ~6 h
//	e2/gel              ~7.3 h    ~20 h
//	e2/patch-apply      (steady release; offset t=1/2 ~24 h)
var defaultEntries = map[Compound]map[Route]CatalogEntry{
	CompoundEstradiolValerate: {
		RouteInjection: {F: 1.0, KaPerHour: 0.00825, KePerHour: 0.042},
		// Oral valerate cleaves in the gut; in estradiol equivalents it
		// follows oral estradiol kinetics.
		RouteOral: {F: 0.05, KaPerHour: 0.60, KePerHour: 0.0513},
	},
	CompoundEstradiolBenzoate: {
		RouteInjection: {F: 1.0, KaPerHour: 0.0231, KePerHour: 0.15},
	},
	CompoundEstradiolCypionate: {
		RouteInjection: {F: 1.0, KaPerHour: 0.00361, KePerHour: 0.028},
	},
	CompoundEstradiolEnanthate: {
		RouteInjection: {F: 1.0, KaPerHour: 0.0027, KePerHour: 0.024},
	},
	CompoundEstradiolUndecylate: {
		RouteInjection: {F: 1.0, KaPerHour: 0.00139, KePerHour: 0.020},
	},
	CompoundEstradiol: {
		RouteOral:       {F: 0.05, KaPerHour: 0.60, KePerHour: 0.0513},
		RouteSublingual: {F: 1.0, KaPerHour: 1.4, KePerHour: 0.1155},
		RouteGel:        {F: 0.10, KaPerHour: 0.35, KePerHour: 0.03466},
		RoutePatchApply: {F: 1.0, KaPerHour: 0, KePerHour: 0.0289},
	},
}

// Catalog is the resolved parameter set the engine simulates against.
// Construct with DefaultCatalog or LoadCatalog; the zero value is not usable.
type Catalog struct {
	vdPerKgLiters      float64
	patchLifetimeHours float64
	molarFactor        map[Compound]float64
	tierFraction       [4]float64
	entries            map[Compound]map[Route]CatalogEntry
}

// DefaultCatalog returns a fresh catalog holding the shipped constants.
// Each call returns an independent copy, so override layers never alias.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		vdPerKgLiters:      defaultVdPerKgLiters,
		patchLifetimeHours: defaultPatchLifetimeHours,
		molarFactor:        make(map[Compound]float64, len(defaultMolarFactors)),
		tierFraction:       defaultTierFractions,
		entries:            make(map[Compound]map[Route]CatalogEntry, len(defaultEntries)),
	}
	for comp, f := range defaultMolarFactors {
		c.molarFactor[comp] = f
	}
	for comp, routes := range defaultEntries {
		m := make(map[Route]CatalogEntry, len(routes))
		for r, e := range routes {
			m[r] = e
		}
		c.entries[comp] = m
	}
	return c
}

// Entry looks up the kinetic constants for a (compound, route) pair. The
// second return is false when the catalog has no entry for the pair.
func (c *Catalog) Entry(comp Compound, route Route) (CatalogEntry, bool) {
	routes, ok := c.entries[comp]
	if !ok {
		return CatalogEntry{}, false
	}
	e, ok := routes[route]
	return e, ok
}

// ToEstradiolEquivalent returns the molar factor converting milligrams of the
// given compound into milligrams of estradiol. Unknown compounds return 0.
func (c *Catalog) ToEstradiolEquivalent(comp Compound) float64 {
	return c.molarFactor[comp]
}

// VdLiters returns the distribution volume for a body weight. Non-finite or
// non-positive weights are clamped to 1 kg with a warning so a corrupt record
// can never zero the denominator of every concentration in the run.
func (c *Catalog) VdLiters(weightKg float64) float64 {
	if math.IsNaN(weightKg) || math.IsInf(weightKg, 0) || weightKg <= 0 {
		logrus.Warnf("body weight %v kg is not usable, clamping to 1 kg", weightKg)
		weightKg = 1.0
	}
	return weightKg * c.vdPerKgLiters
}

// TierFraction returns the absorbed fraction for a sublingual tier. Tiers
// outside the known range fall back to TierStandard.
func (c *Catalog) TierFraction(tier SublingualTier) float64 {
	if tier < TierQuick || tier > TierStrict {
		logrus.Debugf("sublingual tier %d out of range, using standard", tier)
		tier = TierStandard
	}
	return c.tierFraction[tier]
}

// sublingualEfficiency resolves the absorbed fraction for a sublingual dose.
// nil params mean the record carried no selection; use the standard tier.
func (c *Catalog) sublingualEfficiency(p *SublingualParams) float64 {
	if p == nil {
		return c.tierFraction[TierStandard]
	}
	if !p.useTheta {
		return c.TierFraction(p.tier)
	}
	theta := p.theta
	if math.IsNaN(theta) {
		logrus.Debugf("sublingual efficiency is NaN, using standard tier")
		return c.tierFraction[TierStandard]
	}
	// Theta is the absorbed fraction itself, clamped to [0, 1].
	if theta < 0 {
		theta = 0
	} else if theta > 1 {
		theta = 1
	}
	return theta
}

// catalogFile is the YAML override document. Every field is optional; absent
// fields keep their shipped defaults.
type catalogFile struct {
	VdPerKgLiters      *float64           `yaml:"vd_per_kg_liters,omitempty"`
	PatchLifetimeHours *float64           `yaml:"patch_lifetime_hours,omitempty"`
	MolarFactors       map[string]float64 `yaml:"molar_factors,omitempty"`
	Tiers              map[string]float64 `yaml:"tiers,omitempty"`
	Entries            []catalogEntryFile `yaml:"entries,omitempty"`
}

// catalogEntryFile overrides or adds one (compound, route) entry.
type catalogEntryFile struct {
	Compound  string  `yaml:"compound"`
	Route     string  `yaml:"route"`
	F         float64 `yaml:"f"`
	KaPerHour float64 `yaml:"ka_per_hour"`
	KePerHour float64 `yaml:"ke_per_hour"`
}

// LoadCatalog reads a YAML override file and layers it over the shipped
// defaults. Unknown YAML keys are rejected so a typo cannot silently leave a
// constant at its default.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var file catalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	cat := DefaultCatalog()
	if err := cat.apply(&file); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return cat, nil
}

// apply layers one override document onto the catalog, validating as it goes.
func (c *Catalog) apply(file *catalogFile) error {
	if file.VdPerKgLiters != nil {
		v := *file.VdPerKgLiters
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("vd_per_kg_liters must be positive, got %v", v)
		}
		c.vdPerKgLiters = v
	}
	if file.PatchLifetimeHours != nil {
		v := *file.PatchLifetimeHours
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("patch_lifetime_hours must be positive, got %v", v)
		}
		c.patchLifetimeHours = v
	}
	for name, f := range file.MolarFactors {
		comp := Compound(name)
		if !validCompounds[comp] {
			return fmt.Errorf("molar_factors: unknown compound %q", name)
		}
		if math.IsNaN(f) || f <= 0 || f > 1 {
			return fmt.Errorf("molar_factors: factor for %q must be in (0, 1], got %v", name, f)
		}
		c.molarFactor[comp] = f
	}
	for name, frac := range file.Tiers {
		tier, ok := tierNames[name]
		if !ok {
			return fmt.Errorf("tiers: unknown tier %q; valid: quick, casual, standard, strict", name)
		}
		if math.IsNaN(frac) || frac <= 0 || frac > 1 {
			return fmt.Errorf("tiers: fraction for %q must be in (0, 1], got %v", name, frac)
		}
		c.tierFraction[tier] = frac
	}
	for i, e := range file.Entries {
		prefix := fmt.Sprintf("entries[%d]", i)
		comp := Compound(e.Compound)
		route := Route(e.Route)
		if !validCompounds[comp] {
			return fmt.Errorf("%s: unknown compound %q", prefix, e.Compound)
		}
		if !validRoutes[route] || route == RoutePatchRemove {
			return fmt.Errorf("%s: route %q takes no kinetic entry", prefix, e.Route)
		}
		if math.IsNaN(e.F) || e.F <= 0 || e.F > 1 {
			return fmt.Errorf("%s: f must be in (0, 1], got %v", prefix, e.F)
		}
		if math.IsNaN(e.KePerHour) || e.KePerHour <= 0 {
			return fmt.Errorf("%s: ke_per_hour must be positive, got %v", prefix, e.KePerHour)
		}
		if route == RoutePatchApply {
			if e.KaPerHour != 0 {
				return fmt.Errorf("%s: patch entries release at a fixed rate and take no ka_per_hour", prefix)
			}
		} else if math.IsNaN(e.KaPerHour) || e.KaPerHour <= 0 {
			return fmt.Errorf("%s: ka_per_hour must be positive, got %v", prefix, e.KaPerHour)
		}
		routes, ok := c.entries[comp]
		if !ok {
			routes = make(map[Route]CatalogEntry, 1)
			c.entries[comp] = routes
		}
		routes[route] = CatalogEntry{F: e.F, KaPerHour: e.KaPerHour, KePerHour: e.KePerHour}
	}
	return nil
}
