// Package render draws simulation results as PNG charts: the sampled curve,
// optional measured labs, and an optional target band.
package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"gonum.org/v1/gonum/floats"

	"github.com/endosim/endosim/pk"
)

// Chart margins in pixels.
const (
	marginLeft   = 70.0
	marginRight  = 24.0
	marginTop    = 44.0
	marginBottom = 52.0
)

// Options control chart geometry and annotations.
type Options struct {
	Width    int     // Pixels; <= 0 falls back to 1000
	Height   int     // Pixels; <= 0 falls back to 600
	Title    string  // Drawn centered above the plot
	LowPgML  float64 // Target band floor; band drawn only when High > Low > 0
	HighPgML float64 // Target band ceiling
}

// Chart renders a sampled curve with optional lab markers. Curves with no
// samples cannot be drawn and return an error.
func Chart(res pk.SimulationResult, labs []pk.LabResult, opts Options) (image.Image, error) {
	if len(res.TimeHours) == 0 {
		return nil, fmt.Errorf("nothing to draw: empty simulation result")
	}
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = 1000
	}
	if h <= 0 {
		h = 600
	}

	t0 := res.TimeHours[0]
	t1 := res.TimeHours[len(res.TimeHours)-1]
	if t1 <= t0 {
		t1 = t0 + 1
	}
	ymax := floats.Max(res.ConcPgML)
	for _, lab := range labs {
		if lab.ConcPgML > ymax {
			ymax = lab.ConcPgML
		}
	}
	if opts.HighPgML > ymax {
		ymax = opts.HighPgML
	}
	ymax *= 1.08
	if ymax <= 0 {
		ymax = 1
	}

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	labelFace, titleFace, err := faces()
	if err != nil {
		return nil, fmt.Errorf("loading chart font: %w", err)
	}

	plotW := float64(w) - marginLeft - marginRight
	plotH := float64(h) - marginTop - marginBottom
	x := func(t float64) float64 { return marginLeft + (t-t0)/(t1-t0)*plotW }
	y := func(v float64) float64 { return marginTop + plotH - v/ymax*plotH }

	// Target band first so everything else draws over it.
	if opts.HighPgML > opts.LowPgML && opts.LowPgML > 0 {
		dc.SetRGBA255(74, 222, 128, 60)
		top := y(math.Min(opts.HighPgML, ymax))
		dc.DrawRectangle(marginLeft, top, plotW, y(opts.LowPgML)-top)
		dc.Fill()
	}

	// Gridlines and tick labels.
	dc.SetFontFace(labelFace)
	ystep := niceStep(ymax, 6)
	for v := 0.0; v <= ymax; v += ystep {
		dc.SetRGB255(230, 230, 230)
		dc.SetLineWidth(1)
		dc.DrawLine(marginLeft, y(v), marginLeft+plotW, y(v))
		dc.Stroke()
		dc.SetRGB255(80, 80, 80)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", v), marginLeft-8, y(v), 1, 0.5)
	}
	spanDays := (t1 - t0) / 24
	xstep := niceStep(spanDays, 8)
	for d := math.Ceil(t0/24/xstep) * xstep; d <= t1/24; d += xstep {
		t := d * 24
		dc.SetRGB255(230, 230, 230)
		dc.SetLineWidth(1)
		dc.DrawLine(x(t), marginTop, x(t), marginTop+plotH)
		dc.Stroke()
		dc.SetRGB255(80, 80, 80)
		dc.DrawStringAnchored(fmt.Sprintf("%g", d), x(t), marginTop+plotH+8, 0.5, 1)
	}

	// Axes.
	dc.SetRGB255(40, 40, 40)
	dc.SetLineWidth(1.5)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotH)
	dc.DrawLine(marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH)
	dc.Stroke()
	dc.DrawStringAnchored("days", marginLeft+plotW/2, float64(h)-14, 0.5, 0.5)
	dc.DrawStringAnchored("pg/mL", marginLeft-8, marginTop-14, 1, 0.5)

	// The curve.
	dc.SetRGB255(37, 99, 235)
	dc.SetLineWidth(2)
	for i, t := range res.TimeHours {
		if i == 0 {
			dc.MoveTo(x(t), y(res.ConcPgML[i]))
			continue
		}
		dc.LineTo(x(t), y(res.ConcPgML[i]))
	}
	dc.Stroke()

	// Lab draws as filled markers; draws outside the window are skipped.
	dc.SetRGB255(220, 38, 38)
	for _, lab := range labs {
		if lab.TimeHours < t0 || lab.TimeHours > t1 {
			continue
		}
		dc.DrawCircle(x(lab.TimeHours), y(math.Min(lab.ConcPgML, ymax)), 4)
		dc.Fill()
	}

	if opts.Title != "" {
		dc.SetFontFace(titleFace)
		dc.SetRGB255(20, 20, 20)
		dc.DrawStringAnchored(opts.Title, float64(w)/2, marginTop/2, 0.5, 0.5)
	}

	return dc.Image(), nil
}

// WritePNG encodes an image as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding chart: %w", err)
	}
	return nil
}

// SaveChart renders and writes a chart in one step.
func SaveChart(path string, res pk.SimulationResult, labs []pk.LabResult, opts Options) error {
	img, err := Chart(res, labs, opts)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	defer f.Close()
	return WritePNG(f, img)
}

// faces loads the label and title font faces.
func faces() (label, title font.Face, err error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: 12}),
		truetype.NewFace(f, &truetype.Options{Size: 16}), nil
}

// niceStep picks a round tick step so the span divides into at most maxTicks
// intervals.
func niceStep(span float64, maxTicks int) float64 {
	if span <= 0 {
		return 1
	}
	raw := span / float64(maxTicks)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if raw <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}
