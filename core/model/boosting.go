package model

import (
	"sort"

	"github.com/huangsam/propensity/core/algo"
	"github.com/huangsam/propensity/schema"
)

// fitBoosting grows an additive ensemble of stumps on logistic-loss residuals.
// It stops early when no split satisfies the minimum leaf size.
func fitBoosting(x [][]float64, y []float64, learningRate float64, rounds, minLeaf int) *schema.BoostingParameters {
	params := &schema.BoostingParameters{LearningRate: learningRate}
	n := len(x)
	if n == 0 {
		return params
	}
	params.BaseScore = algo.LogOdds(algo.Mean(y))

	logits := make([]float64, n)
	for i := range logits {
		logits[i] = params.BaseScore
	}
	residuals := make([]float64, n)
	finder := newSplitFinder(x, max(minLeaf, 1))

	for range rounds {
		for i := range residuals {
			residuals[i] = y[i] - algo.Sigmoid(logits[i])
		}
		stump, ok := finder.best(residuals)
		if !ok {
			break
		}
		for i, row := range x {
			logits[i] += learningRate * stump.Predict(row)
		}
		params.Stumps = append(params.Stumps, stump)
	}
	return params
}

// boostingLogit is the additive stump sum for one standardized row.
func boostingLogit(p *schema.BoostingParameters, row []float64) float64 {
	z := p.BaseScore
	for _, s := range p.Stumps {
		z += p.LearningRate * s.Predict(row)
	}
	return z
}

// splitFinder caches the per-feature sort order, which does not change between rounds.
type splitFinder struct {
	x       [][]float64
	orders  [][]int
	minLeaf int
}

func newSplitFinder(x [][]float64, minLeaf int) *splitFinder {
	d := 0
	if len(x) > 0 {
		d = len(x[0])
	}
	orders := make([][]int, d)
	for j := range orders {
		order := make([]int, len(x))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return x[order[a]][j] < x[order[b]][j] })
		orders[j] = order
	}
	return &splitFinder{x: x, orders: orders, minLeaf: minLeaf}
}

// best returns the stump minimizing the summed squared error of both leaves.
// Candidate thresholds are midpoints between distinct consecutive values,
// each scored in O(1) from prefix sums of r and r².
func (f *splitFinder) best(residuals []float64) (schema.Stump, bool) {
	n := len(residuals)
	if n < 2*f.minLeaf {
		return schema.Stump{}, false
	}

	var total, totalSq float64
	for _, r := range residuals {
		total += r
		totalSq += r * r
	}

	var best schema.Stump
	bestSSE := 0.0
	found := false

	for j, order := range f.orders {
		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			r := residuals[order[k]]
			leftSum += r
			leftSq += r * r

			nLeft := k + 1
			nRight := n - nLeft
			if nLeft < f.minLeaf {
				continue
			}
			if nRight < f.minLeaf {
				break
			}
			lo, hi := f.x[order[k]][j], f.x[order[k+1]][j]
			if lo == hi {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nLeft)) + (rightSq - rightSum*rightSum/float64(nRight))
			if !found || sse < bestSSE {
				found = true
				bestSSE = sse
				best = schema.Stump{
					FeatureIndex: j,
					Threshold:    (lo + hi) / 2,
					LeftValue:    leftSum / float64(nLeft),
					RightValue:   rightSum / float64(nRight),
				}
			}
		}
	}
	return best, found
}
