package model

import (
	"fmt"

	"github.com/huangsam/propensity/schema"
)

// CrossValidate runs k-fold cross-validation with k = max(2, min(folds, n/2)).
// Each fold is a contiguous slice of one shuffle and gets a fresh Fit with no nested evaluation.
func (t *Trainer) CrossValidate(examples []schema.TrainingExample, featureNames []string, folds int) (*schema.CrossValidationResult, error) {
	n := len(examples)
	if n < MinTrainingExamples {
		return nil, fmt.Errorf("%w: %d examples, need %d", schema.ErrInsufficientData, n, MinTrainingExamples)
	}
	k := max(2, min(folds, n/2))

	shuffled := t.shuffle(examples)
	inner := &Trainer{Options: t.Options, Rand: t.Rand, Now: t.Now}
	inner.Options.SkipEvaluation = true

	result := &schema.CrossValidationResult{Folds: k}
	metrics := make([]schema.ModelMetrics, 0, k)
	for fold := range k {
		start, end := foldBounds(n, k, fold)
		validation := shuffled[start:end]
		train := make([]schema.TrainingExample, 0, n-(end-start))
		train = append(train, shuffled[:start]...)
		train = append(train, shuffled[end:]...)

		model, err := inner.Fit(train, validation, featureNames)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold+1, err)
		}
		result.Results = append(result.Results, schema.FoldResult{
			Fold:           fold + 1,
			TrainSize:      len(train),
			ValidationSize: len(validation),
			Metrics:        model.Metrics,
		})
		metrics = append(metrics, model.Metrics)
	}
	result.Mean = MeanMetrics(metrics)
	return result, nil
}

// foldBounds spreads the remainder over the first folds so sizes differ by at most one.
func foldBounds(n, k, fold int) (start, end int) {
	size, extra := n/k, n%k
	start = fold*size + min(fold, extra)
	end = start + size
	if fold < extra {
		end++
	}
	return start, end
}
