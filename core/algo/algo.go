// Package algo has the numeric building blocks shared by signals, features, models and scoring.
package algo

import (
	"math"
	"sort"
)

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampScore limits v to the [0, 100] score range.
func ClampScore(v float64) float64 {
	return Clamp(v, 0, 100)
}

// Sigmoid is the logistic function. Large magnitudes saturate instead of overflowing.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// LogOdds returns log(p / (1 - p)) with p clamped away from 0 and 1.
func LogOdds(p float64) float64 {
	p = Clamp(p, 1e-6, 1-1e-6)
	return math.Log(p / (1 - p))
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the exact median (mean of the two middle values for even counts).
// The input is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// SafeDiv returns num/den, or ok=false when den is not positive.
func SafeDiv(num, den float64) (float64, bool) {
	if den <= 0 {
		return 0, false
	}
	return num / den, true
}
