// Package regimen expands repeating dose schedules into concrete dose
// events. A regimen spec is the YAML form a user writes ("6 mg estradiol
// valerate every 7 days, ten times"); expansion mints event IDs and converts
// raw ester milligrams into the estradiol equivalents the engine carries.
package regimen

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/endosim/endosim/pk"
)

// Spec is one repeating schedule. Loaded from YAML via LoadSpec.
type Spec struct {
	Name          string  `yaml:"name,omitempty"`
	Compound      string  `yaml:"compound"`
	Route         string  `yaml:"route"`
	DoseMg        float64 `yaml:"dose_mg,omitempty"` // raw ester milligrams per administration
	StartHours    float64 `yaml:"start_hours"`
	IntervalHours float64 `yaml:"interval_hours,omitempty"`
	Count         int     `yaml:"count"`

	SublingualTier  *string  `yaml:"sublingual_tier,omitempty"`  // quick, casual, standard, strict
	SublingualTheta *float64 `yaml:"sublingual_theta,omitempty"` // continuous fraction in [0, 1]

	WearHours           float64 `yaml:"wear_hours,omitempty"`              // patch: hours worn before removal
	ReleaseRateUgPerDay float64 `yaml:"release_rate_ug_per_day,omitempty"` // patch rate mode
}

// LoadSpec reads a regimen spec from YAML. Unknown keys are rejected.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading regimen spec: %w", err)
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing regimen spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid regimen spec: %w", err)
	}
	return &spec, nil
}

// Validate checks that all fields in the spec are valid.
func (s *Spec) Validate() error {
	route := pk.Route(s.Route)
	if !pk.KnownRoute(route) || route == pk.RoutePatchRemove {
		return fmt.Errorf("unknown route %q; valid: injection, oral, sublingual, gel, patch-apply", s.Route)
	}
	if !pk.KnownCompound(pk.Compound(s.Compound)) {
		return fmt.Errorf("unknown compound %q", s.Compound)
	}
	if s.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", s.Count)
	}
	if s.Count > 1 && !(s.IntervalHours > 0) {
		return fmt.Errorf("interval_hours must be positive for repeating schedules, got %v", s.IntervalHours)
	}
	if math.IsNaN(s.StartHours) || math.IsInf(s.StartHours, 0) {
		return fmt.Errorf("start_hours must be finite, got %v", s.StartHours)
	}
	if math.IsNaN(s.DoseMg) || math.IsInf(s.DoseMg, 0) || s.DoseMg < 0 {
		return fmt.Errorf("dose_mg must be finite and non-negative, got %v", s.DoseMg)
	}
	if s.SublingualTier != nil || s.SublingualTheta != nil {
		if route != pk.RouteSublingual {
			return fmt.Errorf("sublingual settings are only valid for the sublingual route")
		}
		if s.SublingualTier != nil && s.SublingualTheta != nil {
			return fmt.Errorf("sublingual_tier and sublingual_theta are mutually exclusive")
		}
		if s.SublingualTier != nil {
			if _, err := pk.ParseSublingualTier(*s.SublingualTier); err != nil {
				return err
			}
		}
		if s.SublingualTheta != nil {
			theta := *s.SublingualTheta
			if math.IsNaN(theta) || theta < 0 || theta > 1 {
				return fmt.Errorf("sublingual_theta must be in [0, 1], got %v", theta)
			}
		}
	}
	if route == pk.RoutePatchApply {
		rate := s.ReleaseRateUgPerDay
		if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
			return fmt.Errorf("release_rate_ug_per_day must be finite and non-negative, got %v", rate)
		}
		if rate == 0 && s.DoseMg == 0 {
			return fmt.Errorf("patch schedules need a release rate or a dose")
		}
		if rate > 0 && s.DoseMg > 0 {
			return fmt.Errorf("patch schedules take a release rate or a dose, not both")
		}
		if math.IsNaN(s.WearHours) || math.IsInf(s.WearHours, 0) || s.WearHours < 0 {
			return fmt.Errorf("wear_hours must be finite and non-negative, got %v", s.WearHours)
		}
	} else {
		if s.DoseMg == 0 {
			return fmt.Errorf("dose_mg must be positive for route %q", s.Route)
		}
		if s.ReleaseRateUgPerDay != 0 || s.WearHours != 0 {
			return fmt.Errorf("patch settings are only valid for the patch-apply route")
		}
	}
	return nil
}

// Expand turns the schedule into concrete dose events: one per repeat, plus
// a removal per repeat for patches with a wear time. Event IDs are freshly
// minted UUIDs; raw ester milligrams become estradiol equivalents via the
// catalog molar factor. Events come back in generation order; the engine
// sorts on its own.
func Expand(s *Spec, cat *pk.Catalog) ([]pk.DoseEvent, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid regimen spec: %w", err)
	}
	route := pk.Route(s.Route)
	comp := pk.Compound(s.Compound)
	factor := cat.ToEstradiolEquivalent(comp)
	if factor <= 0 {
		return nil, fmt.Errorf("no molar factor for compound %q", s.Compound)
	}

	var sublingual *pk.SublingualParams
	if s.SublingualTier != nil {
		tier, _ := pk.ParseSublingualTier(*s.SublingualTier)
		sublingual = pk.SublingualTierParams(tier)
	} else if s.SublingualTheta != nil {
		sublingual = pk.SublingualEfficiencyParams(*s.SublingualTheta)
	}

	events := make([]pk.DoseEvent, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		t := s.StartHours + float64(i)*s.IntervalHours
		e := pk.DoseEvent{
			ID:        uuid.New().String(),
			Route:     route,
			Compound:  comp,
			TimeHours: t,
		}
		if s.DoseMg > 0 {
			e.DoseMg = s.DoseMg * factor
		}
		switch route {
		case pk.RoutePatchApply:
			e.Patch = &pk.PatchParams{ReleaseRateUgPerDay: s.ReleaseRateUgPerDay}
			if s.ReleaseRateUgPerDay == 0 {
				e.Patch = nil
			}
		case pk.RouteSublingual:
			e.Sublingual = sublingual
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("repeat %d: %w", i, err)
		}
		events = append(events, e)
		if route == pk.RoutePatchApply && s.WearHours > 0 {
			events = append(events, pk.DoseEvent{
				ID:        uuid.New().String(),
				Route:     pk.RoutePatchRemove,
				Compound:  comp,
				TimeHours: t + s.WearHours,
			})
		}
	}
	logrus.Debugf("expanded regimen %q into %d events", s.Name, len(events))
	return events, nil
}
