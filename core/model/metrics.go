package model

import (
	"math"

	"github.com/huangsam/propensity/schema"
)

const (
	decisionThreshold = 0.5
	logLossEpsilon    = 1e-15
)

// ComputeMetrics scores probabilities against binary labels at a 0.5 threshold.
// Ratios with an empty denominator are reported as 0.
func ComputeMetrics(probs []float64, labels []int) schema.ModelMetrics {
	n := min(len(probs), len(labels))
	m := schema.ModelMetrics{Support: n}
	if n == 0 {
		return m
	}

	logLoss := 0.0
	for i := 0; i < n; i++ {
		p := probs[i]
		predicted := p >= decisionThreshold
		switch {
		case predicted && labels[i] == 1:
			m.TruePositives++
		case predicted:
			m.FalsePositives++
		case labels[i] == 1:
			m.FalseNegatives++
		default:
			m.TrueNegatives++
		}

		clamped := math.Min(math.Max(p, logLossEpsilon), 1-logLossEpsilon)
		if labels[i] == 1 {
			logLoss -= math.Log(clamped)
		} else {
			logLoss -= math.Log(1 - clamped)
		}
	}

	m.Accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(n)
	m.Precision = ratioOrZero(m.TruePositives, m.TruePositives+m.FalsePositives)
	m.Recall = ratioOrZero(m.TruePositives, m.TruePositives+m.FalseNegatives)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	m.LogLoss = logLoss / float64(n)
	m.AUC = AUC(probs[:n], labels[:n])
	return m
}

// AUC is the probability that a random positive outranks a random negative,
// by exhaustive pairwise comparison with ties counted as half.
// It is 0.5 when either class is absent.
func AUC(probs []float64, labels []int) float64 {
	var positives, negatives []float64
	for i, p := range probs {
		if labels[i] == 1 {
			positives = append(positives, p)
		} else {
			negatives = append(negatives, p)
		}
	}
	if len(positives) == 0 || len(negatives) == 0 {
		return 0.5
	}
	wins := 0.0
	for _, pos := range positives {
		for _, neg := range negatives {
			switch {
			case pos > neg:
				wins++
			case pos == neg:
				wins += 0.5
			}
		}
	}
	return wins / float64(len(positives)*len(negatives))
}

// MeanMetrics averages metrics field by field. Counts are summed.
func MeanMetrics(all []schema.ModelMetrics) schema.ModelMetrics {
	var mean schema.ModelMetrics
	if len(all) == 0 {
		return mean
	}
	for _, m := range all {
		mean.Accuracy += m.Accuracy
		mean.Precision += m.Precision
		mean.Recall += m.Recall
		mean.F1 += m.F1
		mean.LogLoss += m.LogLoss
		mean.AUC += m.AUC
		mean.TruePositives += m.TruePositives
		mean.FalsePositives += m.FalsePositives
		mean.TrueNegatives += m.TrueNegatives
		mean.FalseNegatives += m.FalseNegatives
		mean.Support += m.Support
	}
	k := float64(len(all))
	mean.Accuracy /= k
	mean.Precision /= k
	mean.Recall /= k
	mean.F1 /= k
	mean.LogLoss /= k
	mean.AUC /= k
	return mean
}

func ratioOrZero(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
