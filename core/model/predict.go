package model

import (
	"errors"
	"fmt"

	"github.com/huangsam/propensity/core/algo"
	"github.com/huangsam/propensity/core/features"
	"github.com/huangsam/propensity/schema"
)

// ErrNoModel is returned when predicting without a model.
var ErrNoModel = errors.New("no model loaded")

// Predict standardizes raw feature values with the model's saved statistics and
// returns the positive-class probability.
func Predict(model *schema.SellerModelWeights, values []float64) (float64, error) {
	if model == nil {
		return 0, ErrNoModel
	}
	if len(values) != len(model.FeatureNames) {
		return 0, fmt.Errorf("%w: got %d values, model has %d features", schema.ErrFeatureMismatch, len(values), len(model.FeatureNames))
	}
	z, err := Logit(model.Parameters, Standardize(values, model.Stats()))
	if err != nil {
		return 0, err
	}
	return algo.Sigmoid(z), nil
}

// PredictVector checks the vector layout against the model before predicting.
func PredictVector(model *schema.SellerModelWeights, vector schema.SellerFeatureVector) (float64, error) {
	if model == nil {
		return 0, ErrNoModel
	}
	if err := features.Validate(vector, model.FeatureNames); err != nil {
		return 0, err
	}
	return Predict(model, vector.Values)
}

// Logit dispatches on the parameter variant for an already standardized row.
func Logit(params schema.ModelParameters, row []float64) (float64, error) {
	switch p := params.(type) {
	case *schema.LogisticParameters:
		if len(p.Weights) != len(row) {
			return 0, fmt.Errorf("%w: %d weights for %d features", schema.ErrFeatureMismatch, len(p.Weights), len(row))
		}
		return linear(p.Weights, p.Bias, row), nil
	case *schema.BoostingParameters:
		return boostingLogit(p, row), nil
	default:
		return 0, fmt.Errorf("%w: %T", schema.ErrUnknownModelParameters, params)
	}
}

// Evaluate predicts every example and computes metrics against its label.
func Evaluate(model *schema.SellerModelWeights, examples []schema.TrainingExample) (schema.ModelMetrics, error) {
	probs, labels, err := predictAll(model, examples)
	if err != nil {
		return schema.ModelMetrics{}, err
	}
	return ComputeMetrics(probs, labels), nil
}

func predictAll(model *schema.SellerModelWeights, examples []schema.TrainingExample) ([]float64, []int, error) {
	probs := make([]float64, len(examples))
	labels := make([]int, len(examples))
	for i, ex := range examples {
		p, err := Predict(model, ex.Features)
		if err != nil {
			return nil, nil, fmt.Errorf("predict %s: %w", ex.PropertyID, err)
		}
		probs[i] = p
		labels[i] = ex.Label
	}
	return probs, labels, nil
}
