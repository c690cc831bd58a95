// Package testutil provides reusable test helper functions for image
// resampler tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for various test scenarios.
const (
	// WeightTolerance bounds normalization error of contribution tables.
	WeightTolerance = 1e-4

	// LinearTolerance bounds error of linear-light float comparisons.
	LinearTolerance = 1e-5

	// LSBTolerance8 is one quantization step of an 8-bit channel.
	LSBTolerance8 = 1.0
)

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		f := float64(v)
		if math.IsNaN(f) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(f, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [minVal, maxVal].
func AssertAllInRange(t *testing.T, s []float32, minVal, maxVal float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}

// AssertWeightsSumTo verifies that a group of weights sums to the expected
// gain within tolerance.
func AssertWeightsSumTo(t *testing.T, weights []float32, expected, tolerance float64) bool {
	t.Helper()
	var sum float64
	for _, w := range weights {
		sum += float64(w)
	}
	return assert.InDelta(t, expected, sum, tolerance,
		"weights sum to %f, want %f", sum, expected)
}

// MaxAbsDiff returns the largest absolute per-byte difference between two
// equally sized pixel slices.
func MaxAbsDiff(t *testing.T, a, b []byte) int {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("slice lengths differ: %d vs %d", len(a), len(b))
	}
	maxDiff := 0
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		if d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff
}

// UniformPixels returns n repetitions of the given packed pixel.
func UniformPixels(pixel []byte, n int) []byte {
	out := make([]byte, 0, len(pixel)*n)
	for range n {
		out = append(out, pixel...)
	}
	return out
}

// GradientRow returns a width-long single-channel 8-bit horizontal ramp
// from lo to hi inclusive.
func GradientRow(width int, lo, hi byte) []byte {
	out := make([]byte, width)
	if width == 1 {
		out[0] = lo
		return out
	}
	span := float64(hi) - float64(lo)
	for x := range out {
		out[x] = byte(math.Floor(float64(lo) + span*float64(x)/float64(width-1) + 0.5))
	}
	return out
}
