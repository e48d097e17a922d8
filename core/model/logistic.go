package model

import (
	"github.com/huangsam/propensity/core/algo"
	"github.com/huangsam/propensity/schema"
)

// fitLogistic runs full-batch gradient descent with L2 regularization on standardized rows.
func fitLogistic(x [][]float64, y []float64, learningRate float64, iterations int, l2 float64) *schema.LogisticParameters {
	params := &schema.LogisticParameters{}
	if len(x) == 0 {
		return params
	}
	d := len(x[0])
	n := float64(len(x))
	weights := make([]float64, d)
	grad := make([]float64, d)
	bias := 0.0

	for range iterations {
		clear(grad)
		gradBias := 0.0
		for i, row := range x {
			diff := algo.Sigmoid(linear(weights, bias, row)) - y[i]
			for j, v := range row {
				grad[j] += diff*v + l2*weights[j]
			}
			gradBias += diff
		}
		for j := range weights {
			weights[j] -= learningRate * grad[j] / n
		}
		bias -= learningRate * gradBias / n
	}

	params.Weights = weights
	params.Bias = bias
	return params
}

func linear(weights []float64, bias float64, row []float64) float64 {
	z := bias
	for j, w := range weights {
		if j < len(row) {
			z += w * row[j]
		}
	}
	return z
}
