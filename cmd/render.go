package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/endosim/endosim/internal/render"
	"github.com/endosim/endosim/pk"
)

var (
	// CLI flags for the render command
	chartOut    string  // Output PNG path
	chartWidth  int     // Chart width in pixels
	chartHeight int     // Chart height in pixels
	chartTitle  string  // Chart title
	bandLow     float64 // Target band floor in pg/mL
	bandHigh    float64 // Target band ceiling in pg/mL
	renderCal   bool    // Scale the curve by the lab correction
)

// renderCmd draws a dose history's concentration curve as a PNG chart
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a dose history as a PNG chart",
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
		if renderCal {
			corr := pk.Calibrate(res, labs)
			res = applyCorrection(res, corr)
		}

		opts := render.Options{
			Width:    cfg.ChartWidth,
			Height:   cfg.ChartHeight,
			Title:    chartTitle,
			LowPgML:  bandLow,
			HighPgML: bandHigh,
		}
		if cmd.Flags().Changed("width") {
			opts.Width = chartWidth
		}
		if cmd.Flags().Changed("height") {
			opts.Height = chartHeight
		}
		if err := render.SaveChart(chartOut, res, labs, opts); err != nil {
			logrus.Fatalf("Unable to render chart: %v", err)
		}
		logrus.Infof("Wrote chart to %s", chartOut)
	},
}

// init sets up CLI flags and subcommands
func init() {
	addCommonFlags(renderCmd)
	renderCmd.Flags().StringVar(&chartOut, "out", "curve.png", "Output PNG path")
	renderCmd.Flags().IntVar(&chartWidth, "width", 1000, "Chart width in pixels")
	renderCmd.Flags().IntVar(&chartHeight, "height", 600, "Chart height in pixels")
	renderCmd.Flags().StringVar(&chartTitle, "title", "estradiol", "Chart title")
	renderCmd.Flags().Float64Var(&bandLow, "band-low", 0, "Target band floor in pg/mL (0 disables the band)")
	renderCmd.Flags().Float64Var(&bandHigh, "band-high", 0, "Target band ceiling in pg/mL")
	renderCmd.Flags().BoolVar(&renderCal, "calibrated", false, "Scale the curve by the lab correction before drawing")

	rootCmd.AddCommand(renderCmd)
}
