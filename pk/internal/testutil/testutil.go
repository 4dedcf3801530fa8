// Package testutil provides shared float assertion helpers used across the
// pk/ and pk/regimen/ test packages.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertStrictlyIncreasing fails unless each element is greater than the one
// before it.
func AssertStrictlyIncreasing(t *testing.T, name string, xs []float64) {
	t.Helper()
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			t.Errorf("%s: not strictly increasing at index %d: %v then %v", name, i, xs[i-1], xs[i])
			return
		}
	}
}

// AssertNonNegative fails if any element is negative or NaN.
func AssertNonNegative(t *testing.T, name string, xs []float64) {
	t.Helper()
	for i, v := range xs {
		if v < 0 || math.IsNaN(v) {
			t.Errorf("%s: negative or NaN value %v at index %d", name, v, i)
			return
		}
	}
}
