// Package history loads dose histories and lab results from YAML files and
// converts them into engine inputs. This is the entry-form layer: records
// carry raw ester milligrams and route names as the user wrote them;
// conversion to estradiol equivalents and typed parameters happens here, so
// the engine only ever sees normalized values.
package history

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/endosim/endosim/pk"
)

// File is one dose-history document: subject parameters, administrations,
// and optional lab draws, all on the shared hours axis.
type File struct {
	WeightKg float64      `yaml:"weight_kg"`
	NowHours *float64     `yaml:"now_hours,omitempty"` // optional; the CLI flag wins when both are set
	Doses    []DoseRecord `yaml:"doses"`
	Labs     []LabRecord  `yaml:"labs,omitempty"`
}

// DoseRecord is one administration as entered. DoseMg is raw ester mass;
// Events applies the molar factor.
type DoseRecord struct {
	ID                  string   `yaml:"id,omitempty"` // minted when absent
	Route               string   `yaml:"route"`
	Compound            string   `yaml:"compound"`
	TimeHours           float64  `yaml:"time_hours"`
	DoseMg              float64  `yaml:"dose_mg,omitempty"`
	ReleaseRateUgPerDay float64  `yaml:"release_rate_ug_per_day,omitempty"`
	SublingualTier      *string  `yaml:"sublingual_tier,omitempty"`
	SublingualTheta     *float64 `yaml:"sublingual_theta,omitempty"`
}

// LabRecord is one measured blood level.
type LabRecord struct {
	TimeHours float64 `yaml:"time_hours"`
	ConcPgML  float64 `yaml:"conc_pg_ml"`
}

// Load reads a dose-history file. Unknown YAML keys are rejected, and every
// record is validated so errors point at the line that caused them.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dose history: %w", err)
	}
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing dose history: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dose history: %w", err)
	}
	return &f, nil
}

// WriteFile validates and marshals the document to YAML at path.
func WriteFile(path string, f *File) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid dose history: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshalling dose history: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing dose history: %w", err)
	}
	return nil
}

// Validate checks that all fields in the file are valid.
func (f *File) Validate() error {
	if math.IsNaN(f.WeightKg) || math.IsInf(f.WeightKg, 0) || f.WeightKg <= 0 {
		return fmt.Errorf("weight_kg must be positive, got %v", f.WeightKg)
	}
	if f.NowHours != nil && (math.IsNaN(*f.NowHours) || math.IsInf(*f.NowHours, 0)) {
		return fmt.Errorf("now_hours must be finite, got %v", *f.NowHours)
	}
	seen := make(map[string]bool, len(f.Doses))
	for i, d := range f.Doses {
		if err := validateDose(&d, i); err != nil {
			return err
		}
		if d.ID != "" {
			if seen[d.ID] {
				return fmt.Errorf("doses[%d]: duplicate id %q", i, d.ID)
			}
			seen[d.ID] = true
		}
	}
	for i, l := range f.Labs {
		prefix := fmt.Sprintf("labs[%d]", i)
		if math.IsNaN(l.TimeHours) || math.IsInf(l.TimeHours, 0) {
			return fmt.Errorf("%s: time_hours must be finite, got %v", prefix, l.TimeHours)
		}
		if math.IsNaN(l.ConcPgML) || math.IsInf(l.ConcPgML, 0) || l.ConcPgML < 0 {
			return fmt.Errorf("%s: conc_pg_ml must be finite and non-negative, got %v", prefix, l.ConcPgML)
		}
	}
	return nil
}

func validateDose(d *DoseRecord, idx int) error {
	prefix := fmt.Sprintf("doses[%d]", idx)
	if d.SublingualTier != nil && d.SublingualTheta != nil {
		return fmt.Errorf("%s: sublingual_tier and sublingual_theta are mutually exclusive", prefix)
	}
	if d.SublingualTier != nil {
		if _, err := pk.ParseSublingualTier(*d.SublingualTier); err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
	}
	if d.SublingualTheta != nil {
		theta := *d.SublingualTheta
		if math.IsNaN(theta) || theta < 0 || theta > 1 {
			return fmt.Errorf("%s: sublingual_theta must be in [0, 1], got %v", prefix, theta)
		}
	}
	if d.ReleaseRateUgPerDay != 0 && pk.Route(d.Route) != pk.RoutePatchApply {
		return fmt.Errorf("%s: release_rate_ug_per_day is only valid for patch-apply records", prefix)
	}
	e, err := d.event("", 1.0)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}

// event builds the engine form of one record: id attached, dose scaled by
// the molar factor, per-route parameters wrapped.
func (d *DoseRecord) event(id string, molarFactor float64) (pk.DoseEvent, error) {
	e := pk.DoseEvent{
		ID:        id,
		Route:     pk.Route(d.Route),
		Compound:  pk.Compound(d.Compound),
		TimeHours: d.TimeHours,
		DoseMg:    d.DoseMg * molarFactor,
	}
	switch {
	case d.SublingualTier != nil:
		tier, err := pk.ParseSublingualTier(*d.SublingualTier)
		if err != nil {
			return e, err
		}
		e.Sublingual = pk.SublingualTierParams(tier)
	case d.SublingualTheta != nil:
		e.Sublingual = pk.SublingualEfficiencyParams(*d.SublingualTheta)
	}
	if e.Route == pk.RoutePatchApply && d.ReleaseRateUgPerDay != 0 {
		e.Patch = &pk.PatchParams{ReleaseRateUgPerDay: d.ReleaseRateUgPerDay}
	}
	return e, nil
}

// Events converts the records into engine events. Records without an ID get
// a freshly minted UUID. Call only after Validate (Load already does).
func (f *File) Events(cat *pk.Catalog) []pk.DoseEvent {
	events := make([]pk.DoseEvent, 0, len(f.Doses))
	for i := range f.Doses {
		d := &f.Doses[i]
		id := d.ID
		if id == "" {
			id = uuid.New().String()
		}
		e, err := d.event(id, cat.ToEstradiolEquivalent(pk.Compound(d.Compound)))
		if err != nil {
			// Validate has already rejected unparseable records.
			continue
		}
		events = append(events, e)
	}
	return events
}

// LabResults converts the lab records into engine form.
func (f *File) LabResults() []pk.LabResult {
	labs := make([]pk.LabResult, len(f.Labs))
	for i, l := range f.Labs {
		labs[i] = pk.LabResult{TimeHours: l.TimeHours, ConcPgML: l.ConcPgML}
	}
	return labs
}
