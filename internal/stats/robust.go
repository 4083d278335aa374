// Package stats provides the robust numeric primitives the rotation
// engine is built on: median, median absolute deviation, and the
// MAD-based robust z-score.
package stats

import "sort"

// MADConsistency rescales MAD into a consistent estimator of the
// standard deviation under normality.
const MADConsistency = 1.4826

// Median returns the median of xs. 0 for empty input. For even-length
// input, the average of the two central values.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MAD returns the median absolute deviation of xs: the median of
// |x - median(xs)|. 0 for empty input.
func MAD(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}

	med := Median(xs)
	devs := make([]float64, n)
	for i, x := range xs {
		d := x - med
		if d < 0 {
			d = -d
		}
		devs[i] = d
	}
	return Median(devs)
}

/// RobustZ returns the robust z-score of value against xs:
// (value - median) / (MAD * MADConsistency). Returns 0 when xs has
// fewer than 2 observations or zero dispersion, so sparse or degenerate
// history never manufactures statistical confidence.
func RobustZ(value float64, xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mad := MAD(xs)
	if mad == 0 {
		return 0
	}
	return (value - Median(xs)) / (mad * MADConsistency)
}

// Clamp saturates v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
