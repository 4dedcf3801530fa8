package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/endosim/endosim/pk"
)

var (
	// CLI flags for the calibrate command
	atHours []float64 // Times to evaluate the fitted correction
)

// calibrateCmd fits a lab correction against the simulated curve and reports
// measured/predicted ratios
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Fit a correction factor from measured labs",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg := loadProcessConfig()
		cat := resolveCatalog(cfg)

		file := loadDoseFile()
		events := file.Events(cat)
		weight := resolveWeight(cmd, file, cfg)
		now := resolveNow(cmd, file, events)

		res := pk.Simulate(events, cat, pk.SimConfig{WeightKg: weight, NowHours: now, Grid: cfg.Grid()})
		labs := file.LabResults()
		if len(labs) == 0 {
			logrus.Fatalf("Dose history carries no labs to calibrate against")
		}
		corr := pk.Calibrate(res, labs)

		fmt.Printf("%-10s %-12s %-12s %-8s\n", "time_h", "measured", "predicted", "factor")
		for _, lab := range labs {
			pred := pk.Interpolate(res, lab.TimeHours)
			fmt.Printf("%-10.1f %-12.1f %-12.1f %-8.3f\n", lab.TimeHours, lab.ConcPgML, pred, corr(lab.TimeHours))
		}
		for _, t := range atHours {
			pred := pk.Interpolate(res, t)
			fmt.Printf("at %.1f h: predicted %.1f pg/mL, corrected %.1f pg/mL (factor %.3f)\n",
				t, pred, pred*corr(t), corr(t))
		}
	},
}

// init sets up CLI flags and subcommands
func init() {
	addCommonFlags(calibrateCmd)
	calibrateCmd.Flags().Float64SliceVar(&atHours, "at", nil, "Comma-separated times (hours) to evaluate the corrected prediction")
	rootCmd.AddCommand(calibrateCmd)
}
