package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/endosim/endosim/internal/history"
	"github.com/endosim/endosim/pk"
	"github.com/endosim/endosim/pk/regimen"
)

var (
	// CLI flags for the regimen command
	specPath   string // Regimen spec YAML
	regimenOut string // Output dose-history path (empty prints to stdout)
)

// regimenCmd expands a repeating schedule into a dose-history file
var regimenCmd = &cobra.Command{
	Use:   "regimen",
	Short: "Expand a regimen spec into a dose-history file",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg := loadProcessConfig()

		if specPath == "" {
			logrus.Fatalf("Regimen spec not provided, pass --spec")
		}
		spec, err := regimen.LoadSpec(specPath)
		if err != nil {
			logrus.Fatalf("Unable to load regimen: %v", err)
		}

		weight := cfg.WeightKg
		if cmd.Flags().Changed("weight") {
			weight = weightKg
		}
		file := &history.File{
			WeightKg: weight,
			Doses:    recordsFromSpec(spec),
		}
		if regimenOut == "" {
			data, err := yaml.Marshal(file)
			if err != nil {
				logrus.Fatalf("Unable to marshal dose history: %v", err)
			}
			fmt.Print(string(data))
			return
		}
		if err := history.WriteFile(regimenOut, file); err != nil {
			logrus.Fatalf("Unable to write dose history: %v", err)
		}
		logrus.Infof("Wrote %d records to %s", len(file.Doses), regimenOut)
	},
}

// recordsFromSpec materializes schedule repeats as entry-form records, raw
// ester milligrams preserved as the user wrote them.
func recordsFromSpec(s *regimen.Spec) []history.DoseRecord {
	isPatch := pk.Route(s.Route) == pk.RoutePatchApply
	records := make([]history.DoseRecord, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		t := s.StartHours + float64(i)*s.IntervalHours
		rec := history.DoseRecord{
			ID:              uuid.New().String(),
			Route:           s.Route,
			Compound:        s.Compound,
			TimeHours:       t,
			DoseMg:          s.DoseMg,
			SublingualTier:  s.SublingualTier,
			SublingualTheta: s.SublingualTheta,
		}
		if isPatch {
			rec.ReleaseRateUgPerDay = s.ReleaseRateUgPerDay
		}
		records = append(records, rec)
		if isPatch && s.WearHours > 0 {
			records = append(records, history.DoseRecord{
				ID:        uuid.New().String(),
				Route:     string(pk.RoutePatchRemove),
				Compound:  s.Compound,
				TimeHours: t + s.WearHours,
			})
		}
	}
	return records
}

// init sets up CLI flags and subcommands
func init() {
	regimenCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	regimenCmd.Flags().StringVar(&specPath, "spec", "", "Regimen spec YAML file")
	regimenCmd.Flags().StringVar(&regimenOut, "out", "", "Output dose-history path (default: stdout)")
	regimenCmd.Flags().Float64Var(&weightKg, "weight", 70, "Body weight recorded in the emitted file")

	rootCmd.AddCommand(regimenCmd)
}
