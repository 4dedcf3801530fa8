package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/endosim/endosim/internal/config"
	"github.com/endosim/endosim/internal/history"
	"github.com/endosim/endosim/pk"
)

var (
	// CLI flags shared across subcommands
	logLevel    string  // Log verbosity level
	dosesPath   string  // Dose history YAML file
	catalogPath string  // Catalog override YAML file
	weightKg    float64 // Body weight override
	nowHours    float64 // Simulation "now" override
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "endosim",
	Short: "Pharmacokinetic simulator for estradiol dosing histories",
	Long: `endosim renders estradiol dose histories (injections, oral and
sublingual tablets, gel, patches) into blood concentration curves using a
one-compartment model, calibrates predictions against measured labs, and
charts the result.`,
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging parses and applies the log level flag.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadProcessConfig loads the layered process configuration.
func loadProcessConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// resolveCatalog loads catalog overrides named by flag or config, falling
// back to the shipped constants.
func resolveCatalog(cfg *config.Config) *pk.Catalog {
	path := catalogPath
	if path == "" {
		path = cfg.CatalogPath
	}
	if path == "" {
		return pk.DefaultCatalog()
	}
	cat, err := pk.LoadCatalog(path)
	if err != nil {
		logrus.Fatalf("Unable to load catalog: %v", err)
	}
	logrus.Infof("Loaded catalog overrides from %s", path)
	return cat
}

// loadDoseFile reads the dose history named by --doses.
func loadDoseFile() *history.File {
	if dosesPath == "" {
		logrus.Fatalf("Dose history not provided, pass --doses")
	}
	f, err := history.Load(dosesPath)
	if err != nil {
		logrus.Fatalf("Unable to load dose history: %v", err)
	}
	return f
}

// resolveWeight picks the body weight: the flag when set, else the dose
// file, else the process config.
func resolveWeight(cmd *cobra.Command, f *history.File, cfg *config.Config) float64 {
	if cmd.Flags().Changed("weight") {
		return weightKg
	}
	if f != nil {
		return f.WeightKg
	}
	return cfg.WeightKg
}

// resolveNow picks the simulation "now": the flag when set, else the dose
// file's now_hours, else the latest event in the history.
func resolveNow(cmd *cobra.Command, f *history.File, events []pk.DoseEvent) float64 {
	if cmd.Flags().Changed("now") {
		return nowHours
	}
	if f != nil && f.NowHours != nil {
		return *f.NowHours
	}
	latest := 0.0
	for i, e := range events {
		if i == 0 || e.TimeHours > latest {
			latest = e.TimeHours
		}
	}
	return latest
}

// gridFromFlags layers changed grid flags over the configured grid sizing.
func gridFromFlags(cmd *cobra.Command, cfg *config.Config) pk.GridConfig {
	grid := cfg.Grid()
	if cmd.Flags().Changed("lookback-hours") {
		grid.LookbackHours = lookbackHours
	}
	if cmd.Flags().Changed("horizon-half-lives") {
		grid.HorizonHalfLives = horizonHalfLives
	}
	if cmd.Flags().Changed("samples-per-half-life") {
		grid.SamplesPerHalfLife = samplesPerHalfLife
	}
	if cmd.Flags().Changed("max-samples") {
		grid.MaxSamples = maxSamples
	}
	return grid
}

// addCommonFlags registers the flags every curve-producing subcommand takes.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().StringVar(&dosesPath, "doses", "", "Dose history YAML file")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog override YAML file")
	cmd.Flags().Float64Var(&weightKg, "weight", 70, "Body weight in kg (default: from the dose file)")
	cmd.Flags().Float64Var(&nowHours, "now", 0, "Simulation time in hours (default: the dose file's now_hours, else the last event)")
}
