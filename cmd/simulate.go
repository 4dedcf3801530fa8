package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/endosim/endosim/internal/history"
	"github.com/endosim/endosim/pk"
	"github.com/endosim/endosim/pk/regimen"
)

var (
	// CLI flags for the simulate command
	regimenPath        string  // Regimen spec YAML (alternative to --doses)
	lookbackHours      float64 // Window start relative to now
	horizonHalfLives   float64 // Forward horizon in terminal half-lives
	samplesPerHalfLife float64 // Grid density
	maxSamples         int     // Grid size cap
	perDose            bool    // Emit per-dose series
	calibrated         bool    // Scale outputs by the lab correction
	csvPath            string  // CSV output path
	jsonPath           string  // JSON output path
	statsFromHours     float64 // Summary window start
	statsToHours       float64 // Summary window end
)

// curveOutput is the JSON shape of a simulated curve.
type curveOutput struct {
	NowHours  float64            `json:"now_hours"`
	WeightKg  float64            `json:"weight_kg"`
	TimeHours []float64          `json:"time_hours"`
	ConcPgML  []float64          `json:"conc_pg_ml"`
	PerDose   []doseSeriesOutput `json:"per_dose,omitempty"`
	Summary   summaryOutput      `json:"summary"`
}

type doseSeriesOutput struct {
	EventID  string    `json:"event_id"`
	ConcPgML []float64 `json:"conc_pg_ml"`
}

type summaryOutput struct {
	FromHours   float64 `json:"from_hours"`
	ToHours     float64 `json:"to_hours"`
	Samples     int     `json:"samples"`
	MeanPgML    float64 `json:"mean_pg_ml"`
	PeakPgML    float64 `json:"peak_pg_ml"`
	PeakHours   float64 `json:"peak_hours"`
	TroughPgML  float64 `json:"trough_pg_ml"`
	TroughHours float64 `json:"trough_hours"`
	AUCPgHPerML float64 `json:"auc_pg_h_per_ml"`
}

// simulateCmd renders a dose history into a concentration curve
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a dose history into a concentration curve",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg := loadProcessConfig()
		cat := resolveCatalog(cfg)

		events, file := loadEvents(cat)
		weight := resolveWeight(cmd, file, cfg)
		now := resolveNow(cmd, file, events)

		simCfg := pk.SimConfig{
			WeightKg: weight,
			NowHours: now,
			Grid:     gridFromFlags(cmd, cfg),
			PerDose:  perDose,
		}
		logrus.Infof("Simulating %d events at weight %.1f kg, now %.1f h", len(events), weight, now)
		res := pk.Simulate(events, cat, simCfg)

		var corr pk.CorrectionFunc
		if calibrated && file != nil {
			corr = pk.Calibrate(res, file.LabResults())
			res = applyCorrection(res, corr)
		}

		from, to := now-168, now
		if cmd.Flags().Changed("stats-from") {
			from = statsFromHours
		}
		if cmd.Flags().Changed("stats-to") {
			to = statsToHours
		}
		summary := pk.Summarize(res, from, to)
		fmt.Println(summary)

		if csvPath != "" {
			if err := writeCurveCSV(csvPath, res); err != nil {
				logrus.Fatalf("Unable to write CSV: %v", err)
			}
			logrus.Infof("Wrote curve CSV to %s", csvPath)
		}
		if jsonPath != "" {
			if err := writeCurveJSON(jsonPath, res, simCfg, summary, from, to); err != nil {
				logrus.Fatalf("Unable to write JSON: %v", err)
			}
			logrus.Infof("Wrote curve JSON to %s", jsonPath)
		}
	},
}

// loadEvents resolves the input source: a dose file, or a regimen spec
// expanded on the fly. Returns a nil file in regimen mode.
func loadEvents(cat *pk.Catalog) ([]pk.DoseEvent, *history.File) {
	if regimenPath != "" {
		if dosesPath != "" {
			logrus.Fatalf("Pass --doses or --regimen, not both")
		}
		spec, err := regimen.LoadSpec(regimenPath)
		if err != nil {
			logrus.Fatalf("Unable to load regimen: %v", err)
		}
		events, err := regimen.Expand(spec, cat)
		if err != nil {
			logrus.Fatalf("Unable to expand regimen: %v", err)
		}
		return events, nil
	}
	f := loadDoseFile()
	return f.Events(cat), f
}

// applyCorrection scales every series in the result by the correction.
func applyCorrection(res pk.SimulationResult, corr pk.CorrectionFunc) pk.SimulationResult {
	out := pk.SimulationResult{
		TimeHours: res.TimeHours,
		ConcPgML:  make([]float64, len(res.ConcPgML)),
		PerDose:   make([]pk.DoseSeries, len(res.PerDose)),
	}
	for i, t := range res.TimeHours {
		out.ConcPgML[i] = res.ConcPgML[i] * corr(t)
	}
	for si, s := range res.PerDose {
		scaled := pk.DoseSeries{EventID: s.EventID, ConcPgML: make([]float64, len(s.ConcPgML))}
		for i, t := range res.TimeHours {
			scaled.ConcPgML[i] = s.ConcPgML[i] * corr(t)
		}
		out.PerDose[si] = scaled
	}
	return out
}

// writeCurveCSV writes time/concentration rows.
func writeCurveCSV(path string, res pk.SimulationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"time_hours", "conc_pg_ml"}); err != nil {
		return err
	}
	for i, t := range res.TimeHours {
		row := []string{
			strconv.FormatFloat(t, 'f', -1, 64),
			strconv.FormatFloat(res.ConcPgML[i], 'f', 3, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeCurveJSON writes the full curve, optional per-dose series, and the
// summary block.
func writeCurveJSON(path string, res pk.SimulationResult, cfg pk.SimConfig, s pk.Summary, from, to float64) error {
	out := curveOutput{
		NowHours:  cfg.NowHours,
		WeightKg:  cfg.WeightKg,
		TimeHours: res.TimeHours,
		ConcPgML:  res.ConcPgML,
		Summary: summaryOutput{
			FromHours:   from,
			ToHours:     to,
			Samples:     s.Samples,
			MeanPgML:    s.MeanPgML,
			PeakPgML:    s.PeakPgML,
			PeakHours:   s.PeakHours,
			TroughPgML:  s.TroughPgML,
			TroughHours: s.TroughHours,
			AUCPgHPerML: s.AUCPgHPerML,
		},
	}
	for _, series := range res.PerDose {
		out.PerDose = append(out.PerDose, doseSeriesOutput{EventID: series.EventID, ConcPgML: series.ConcPgML})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// init sets up CLI flags and subcommands
func init() {
	addCommonFlags(simulateCmd)
	simulateCmd.Flags().StringVar(&regimenPath, "regimen", "", "Regimen spec YAML to expand and simulate (alternative to --doses)")
	simulateCmd.Flags().Float64Var(&lookbackHours, "lookback-hours", pk.DefaultLookbackHours, "Window start relative to now")
	simulateCmd.Flags().Float64Var(&horizonHalfLives, "horizon-half-lives", pk.DefaultHorizonHalfLives, "Forward horizon in terminal half-lives")
	simulateCmd.Flags().Float64Var(&samplesPerHalfLife, "samples-per-half-life", pk.DefaultSamplesPerHalfLife, "Grid density against the shortest half-life")
	simulateCmd.Flags().IntVar(&maxSamples, "max-samples", pk.DefaultMaxSamples, "Grid size cap")
	simulateCmd.Flags().BoolVar(&perDose, "per-dose", false, "Include per-dose series in JSON output")
	simulateCmd.Flags().BoolVar(&calibrated, "calibrated", false, "Scale outputs by the lab correction from the dose file's labs")
	simulateCmd.Flags().StringVar(&csvPath, "csv", "", "Write the curve as CSV to this path")
	simulateCmd.Flags().StringVar(&jsonPath, "json", "", "Write the curve as JSON to this path")
	simulateCmd.Flags().Float64Var(&statsFromHours, "stats-from", 0, "Summary window start in hours (default: now minus one week)")
	simulateCmd.Flags().Float64Var(&statsToHours, "stats-to", 0, "Summary window end in hours (default: now)")

	rootCmd.AddCommand(simulateCmd)
}
