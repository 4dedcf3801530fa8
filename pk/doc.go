// Package pk provides the core pharmacokinetic engine for endosim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation core:
//   - dose.go: DoseEvent lifecycle, route/compound registries, per-route parameters
//   - contribution.go: normalization of dose events into closed-form contributions
//   - curve.go: grid construction, superposition, and exact concentration evaluation
//
// # Architecture
//
// The pk package is a pure library: no I/O, no clocks, no goroutines. Callers
// hand it an immutable dose history plus an explicit "now" and get back a
// sampled concentration curve. Entry-point layers live elsewhere:
//   - pk/regimen/: repeating-schedule specs expanded into dose events
//   - internal/history/: YAML dose/lab files loaded into engine inputs
//   - internal/render/: PNG charting of simulation results
//   - cmd/: the endosim CLI
//
// # Pipeline
//
// Simulate runs a fixed pipeline over value types:
//
//	[]DoseEvent -> NormalizeDoses -> []Contribution -> grid + superposition -> SimulationResult
//
// Contributions come in exactly two kinds, bolus (first-order absorption) and
// infusion (zero-order release); every route maps onto one of the two during
// normalization. Downstream code never branches on route again.
//
// Calibrate compares a simulated curve against measured lab results and
// returns a time-dependent correction factor; Interpolate reads a sampled
// curve at arbitrary times. Both operate on SimulationResult values and leave
// the model untouched.
package pk
