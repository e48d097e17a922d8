package model

import (
	"math"

	"github.com/huangsam/propensity/schema"
)

// varianceFloor keeps standardization away from division by zero for constant features.
const varianceFloor = 1e-6

// FitStandardizer computes per-feature means and population standard deviations.
func FitStandardizer(rows [][]float64) schema.StandardizationStats {
	if len(rows) == 0 {
		return schema.StandardizationStats{}
	}
	d := len(rows[0])
	means := make([]float64, d)
	stdDevs := make([]float64, d)
	n := float64(len(rows))

	for _, row := range rows {
		for j := 0; j < d && j < len(row); j++ {
			means[j] += row[j]
		}
	}
	for j := range means {
		means[j] /= n
	}

	for _, row := range rows {
		for j := 0; j < d && j < len(row); j++ {
			diff := row[j] - means[j]
			stdDevs[j] += diff * diff
		}
	}
	for j := range stdDevs {
		stdDevs[j] = math.Sqrt(math.Max(stdDevs[j]/n, varianceFloor))
	}

	return schema.StandardizationStats{Means: means, StdDevs: stdDevs}
}

// Standardize returns (x - mean) / stddev elementwise using previously fit stats.
// Features without stats pass through unchanged.
func Standardize(values []float64, stats schema.StandardizationStats) []float64 {
	out := make([]float64, len(values))
	for j, v := range values {
		mean, std := 0.0, 1.0
		if j < len(stats.Means) {
			mean = stats.Means[j]
		}
		if j < len(stats.StdDevs) {
			std = stats.StdDevs[j]
		}
		if std <= 0 {
			std = math.Sqrt(varianceFloor)
		}
		out[j] = (v - mean) / std
	}
	return out
}

// standardizeAll applies Standardize to every row.
func standardizeAll(rows [][]float64, stats schema.StandardizationStats) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = Standardize(row, stats)
	}
	return out
}
