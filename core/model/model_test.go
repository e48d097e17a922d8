package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/huangsam/propensity/core/features"
	"github.com/huangsam/propensity/internal/marketdata"
	"github.com/huangsam/propensity/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNames = []string{"signal", "constant", "noise"}

// separable builds n examples whose first feature perfectly separates the labels.
func separable(n int) []schema.TrainingExample {
	examples := make([]schema.TrainingExample, n)
	for i := range n {
		label := i % 2
		center := -3.0
		if label == 1 {
			center = 3.0
		}
		examples[i] = schema.TrainingExample{
			PropertyID: fmt.Sprintf("p%02d", i),
			Features:   []float64{center + float64(i)*0.01, 1, float64(i%3) - 1},
			Label:      label,
			Groups:     map[schema.AuditAttribute]string{schema.AuditOwnerType: "individual"},
		}
	}
	return examples
}

func fixedTrainer(algo schema.Algorithm) *Trainer {
	tr := NewTrainer(Options{Algorithm: algo})
	tr.Now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return tr
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, schema.LogisticRegression, opts.Algorithm)
	assert.InDelta(t, 0.2, opts.ValidationRatio, 1e-12)
	assert.InDelta(t, 0.05, opts.LearningRate, 1e-12)
	assert.Equal(t, 1500, opts.Iterations)
	require.NotNil(t, opts.L2)
	assert.InDelta(t, 0.0005, *opts.L2, 1e-12)
	assert.InDelta(t, 0.1, opts.BoostingLearningRate, 1e-12)
	assert.Equal(t, 120, opts.BoostingRounds)
	assert.Equal(t, 3, opts.MinSamplesLeaf)
	assert.Equal(t, 5, opts.Folds)
	require.NotNil(t, opts.Seed)
	assert.EqualValues(t, 42, *opts.Seed)
}

func TestNewTrainer_KeepsExplicitZeros(t *testing.T) {
	tr := NewTrainer(Options{L2: schema.Ptr(0.0), Seed: schema.Ptr(uint64(0))})
	assert.Zero(t, *tr.Options.L2)
	assert.Zero(t, *tr.Options.Seed)
	assert.Zero(t, tr.Options.Hyperparameters()["regularization"])
	assert.Equal(t, 1500, tr.Options.Iterations, "unset fields still get defaults")

	seeded := NewTrainer(Options{})
	assert.EqualValues(t, 42, *seeded.Options.Seed)
}

func TestTrain_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("%d examples", n), func(t *testing.T) {
			model, err := fixedTrainer(schema.LogisticRegression).Train(separable(n), testNames)
			assert.Nil(t, model)
			assert.ErrorIs(t, err, schema.ErrInsufficientData)
		})
	}
}

func TestTrain_FeatureMismatch(t *testing.T) {
	examples := separable(8)
	examples[3].Features = examples[3].Features[:2]
	_, err := fixedTrainer(schema.LogisticRegression).Train(examples, testNames)
	assert.ErrorIs(t, err, schema.ErrFeatureMismatch)
}

func TestTrain_SeparableDataHasPerfectAUC(t *testing.T) {
	for _, algo := range []schema.Algorithm{schema.LogisticRegression, schema.GradientBoosting} {
		t.Run(string(algo), func(t *testing.T) {
			examples := separable(20)
			model, err := fixedTrainer(algo).Train(examples, testNames)
			require.NoError(t, err)

			assert.Equal(t, algo, model.Algorithm)
			assert.Equal(t, algo, model.Parameters.Algorithm())
			assert.Equal(t, 16, model.TrainingSize)
			assert.Equal(t, 4, model.ValidationSize)
			assert.NotEmpty(t, model.ID)

			all, err := Evaluate(model, examples)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, all.AUC, 1e-12)
			assert.InDelta(t, 1.0, all.Accuracy, 1e-12)

			require.NotNil(t, model.Evaluation)
			require.NotNil(t, model.Evaluation.CrossValidation)
			assert.Equal(t, 5, model.Evaluation.CrossValidation.Folds)
			require.NotNil(t, model.Evaluation.BiasAudit)
		})
	}
}

func TestTrain_SkipEvaluation(t *testing.T) {
	tr := NewTrainer(Options{SkipEvaluation: true})
	model, err := tr.Train(separable(10), testNames)
	require.NoError(t, err)
	assert.Nil(t, model.Evaluation)
	assert.Equal(t, 8, model.TrainingSize)
	assert.Equal(t, 2, model.ValidationSize)
}

func TestTrain_ReproducibleForSeed(t *testing.T) {
	examples := separable(14)
	a, err := fixedTrainer(schema.LogisticRegression).Train(examples, testNames)
	require.NoError(t, err)
	b, err := fixedTrainer(schema.LogisticRegression).Train(examples, testNames)
	require.NoError(t, err)

	pa := a.Parameters.(*schema.LogisticParameters)
	pb := b.Parameters.(*schema.LogisticParameters)
	assert.Equal(t, pa.Weights, pb.Weights)
	assert.Equal(t, pa.Bias, pb.Bias)
	assert.Equal(t, a.Metrics, b.Metrics)
	assert.Equal(t, a.Evaluation, b.Evaluation)
}

func TestFit_RoundTripReproducesValidationMetrics(t *testing.T) {
	examples := separable(24)
	// Flip a few labels so metrics are not trivially perfect.
	examples[2].Label, examples[5].Label = 1, 0
	train, validation := examples[:18], examples[18:]

	tr := fixedTrainer(schema.LogisticRegression)
	model, err := tr.Fit(train, validation, testNames)
	require.NoError(t, err)

	var probs []float64
	var labels []int
	for _, ex := range validation {
		p, err := Predict(model, ex.Features)
		require.NoError(t, err)
		probs = append(probs, p)
		labels = append(labels, ex.Label)
	}
	assert.Equal(t, model.Metrics, ComputeMetrics(probs, labels))

	// The persisted form predicts identically.
	data, err := json.Marshal(model)
	require.NoError(t, err)
	var decoded schema.SellerModelWeights
	require.NoError(t, json.Unmarshal(data, &decoded))
	for i, ex := range validation {
		p, err := Predict(&decoded, ex.Features)
		require.NoError(t, err)
		assert.InDelta(t, probs[i], p, 1e-12)
	}
}

func TestFit_BoostingStopsWithoutValidSplit(t *testing.T) {
	// Two examples per class can never satisfy a leaf size of three.
	examples := separable(4)
	tr := NewTrainer(Options{Algorithm: schema.GradientBoosting, MinSamplesLeaf: 3})
	model, err := tr.Fit(examples, nil, testNames)
	require.NoError(t, err)
	params := model.Parameters.(*schema.BoostingParameters)
	assert.Empty(t, params.Stumps)
	assert.InDelta(t, 0.0, params.BaseScore, 1e-9)
	assert.Equal(t, model.Metrics, *model.TrainingMetrics)
}

func TestFit_BoostingRespectsRoundBudget(t *testing.T) {
	tr := NewTrainer(Options{Algorithm: schema.GradientBoosting, BoostingRounds: 7, MinSamplesLeaf: 2})
	model, err := tr.Fit(separable(12), nil, testNames)
	require.NoError(t, err)
	params := model.Parameters.(*schema.BoostingParameters)
	assert.Len(t, params.Stumps, 7)
	for _, s := range params.Stumps {
		assert.Equal(t, 0, s.FeatureIndex, "only the signal feature separates the classes")
	}
}

func TestCrossValidate_DisjointFolds(t *testing.T) {
	examples := separable(12)
	tr := fixedTrainer(schema.LogisticRegression)
	cv, err := tr.CrossValidate(examples, testNames, 3)
	require.NoError(t, err)

	require.Equal(t, 3, cv.Folds)
	require.Len(t, cv.Results, 3)
	total := 0
	for i, r := range cv.Results {
		assert.Equal(t, i+1, r.Fold)
		assert.Equal(t, 4, r.ValidationSize)
		assert.Equal(t, 8, r.TrainSize)
		total += r.ValidationSize
	}
	assert.Equal(t, 12, total)

	covered := make([]bool, 12)
	for fold := range 3 {
		start, end := foldBounds(12, 3, fold)
		for i := start; i < end; i++ {
			assert.False(t, covered[i], "index %d in two folds", i)
			covered[i] = true
		}
	}
	for i, c := range covered {
		assert.True(t, c, "index %d in no fold", i)
	}
}

func TestCrossValidate_FoldCount(t *testing.T) {
	tests := []struct {
		n, requested, expected int
	}{
		{6, 5, 3},
		{7, 1, 2},
		{20, 5, 5},
		{20, 50, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d k=%d", tt.n, tt.requested), func(t *testing.T) {
			cv, err := fixedTrainer(schema.LogisticRegression).CrossValidate(separable(tt.n), testNames, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cv.Folds)
			assert.Len(t, cv.Results, tt.expected)
		})
	}

	_, err := fixedTrainer(schema.LogisticRegression).CrossValidate(separable(5), testNames, 3)
	assert.ErrorIs(t, err, schema.ErrInsufficientData)
}

func TestFoldBounds_UnevenSizes(t *testing.T) {
	sizes := []int{}
	for fold := range 3 {
		start, end := foldBounds(10, 3, fold)
		sizes = append(sizes, end-start)
	}
	assert.Equal(t, []int{4, 3, 3}, sizes)
}

func TestAuditBias_IdenticalGroupsHaveZeroLift(t *testing.T) {
	base := separable(12)
	model, err := NewTrainer(Options{SkipEvaluation: true}).Fit(base, nil, testNames)
	require.NoError(t, err)

	var examples []schema.TrainingExample
	for _, group := range []string{"individual", "trust"} {
		for _, ex := range base {
			ex.Groups = map[schema.AuditAttribute]string{
				schema.AuditOwnerType:    group,
				schema.AuditPriorityTier: "gold",
			}
			examples = append(examples, ex)
		}
	}

	audit, err := AuditBias(model, examples)
	require.NoError(t, err)
	require.NotNil(t, audit)
	assert.Greater(t, audit.GlobalMean, 0.0)

	byKey := map[string]schema.BiasGroup{}
	for _, g := range audit.Groups {
		byKey[string(g.Attribute)+"/"+g.Group] = g
	}
	for _, key := range []string{"owner_type/individual", "owner_type/trust", "priority_tier/gold", "income_band/unknown"} {
		g, ok := byKey[key]
		require.True(t, ok, "missing group %s", key)
		assert.InDelta(t, 0.0, g.Lift, 1e-9, key)
	}
	assert.Equal(t, 12, byKey["owner_type/trust"].Count)
	assert.InDelta(t, 0.5, byKey["owner_type/trust"].PositiveRate, 1e-12)
}

func TestAuditBias_SkippedForZeroGlobalMean(t *testing.T) {
	model := &schema.SellerModelWeights{
		FeatureNames: []string{"x"},
		Parameters:   &schema.BoostingParameters{BaseScore: math.Inf(-1)},
	}
	audit, err := AuditBias(model, []schema.TrainingExample{{PropertyID: "a", Features: []float64{1}}})
	require.NoError(t, err)
	assert.Nil(t, audit)
}

func TestComputeMetrics(t *testing.T) {
	probs := []float64{0.9, 0.8, 0.3, 0.6, 0.2, 0.1}
	labels := []int{1, 1, 1, 0, 0, 0}
	m := ComputeMetrics(probs, labels)

	assert.Equal(t, 2, m.TruePositives)
	assert.Equal(t, 1, m.FalseNegatives)
	assert.Equal(t, 1, m.FalsePositives)
	assert.Equal(t, 2, m.TrueNegatives)
	assert.Equal(t, 6, m.Support)
	assert.InDelta(t, 4.0/6, m.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3, m.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, m.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, m.F1, 1e-12)
	assert.InDelta(t, 8.0/9, m.AUC, 1e-12)

	expectedLoss := -(math.Log(0.9) + math.Log(0.8) + math.Log(0.3) + math.Log(0.4) + math.Log(0.8) + math.Log(0.9)) / 6
	assert.InDelta(t, expectedLoss, m.LogLoss, 1e-12)
}

func TestComputeMetrics_EdgeCases(t *testing.T) {
	assert.Equal(t, schema.ModelMetrics{}, ComputeMetrics(nil, nil))

	m := ComputeMetrics([]float64{0}, []int{1})
	assert.InDelta(t, -math.Log(1e-15), m.LogLoss, 1e-9)
	assert.Zero(t, m.Precision)
	assert.Zero(t, m.F1)
	assert.InDelta(t, 0.5, m.AUC, 1e-12)
}

func TestAUC_TiesCountHalf(t *testing.T) {
	assert.InDelta(t, 0.5, AUC([]float64{0.5, 0.5}, []int{1, 0}), 1e-12)
	assert.InDelta(t, 0.75, AUC([]float64{0.7, 0.4, 0.4}, []int{1, 1, 0}), 1e-12)
	assert.InDelta(t, 0.0, AUC([]float64{0.1, 0.9}, []int{1, 0}), 1e-12)
}

func TestStandardizer(t *testing.T) {
	rows := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	stats := FitStandardizer(rows)
	assert.Equal(t, []float64{3, 5}, stats.Means)
	assert.InDelta(t, math.Sqrt(8.0/3), stats.StdDevs[0], 1e-12, "population variance")
	assert.InDelta(t, 1e-3, stats.StdDevs[1], 1e-12, "variance floor")

	z := Standardize([]float64{3, 5, 9}, stats)
	assert.Equal(t, []float64{0, 0, 9}, z, "extra features pass through")
	assert.Empty(t, FitStandardizer(nil).Means)
}

func TestPredict_Errors(t *testing.T) {
	_, err := Predict(nil, []float64{1})
	assert.ErrorIs(t, err, ErrNoModel)

	model := &schema.SellerModelWeights{
		FeatureNames: []string{"a", "b"},
		Parameters:   &schema.LogisticParameters{Weights: []float64{1, 1}},
	}
	_, err = Predict(model, []float64{1})
	assert.ErrorIs(t, err, schema.ErrFeatureMismatch)

	model.Parameters = nil
	_, err = Predict(model, []float64{1, 2})
	assert.ErrorIs(t, err, schema.ErrUnknownModelParameters)

	model.Parameters = &schema.LogisticParameters{Weights: []float64{1}}
	_, err = Predict(model, []float64{1, 2})
	assert.ErrorIs(t, err, schema.ErrFeatureMismatch)
}

func TestPredictVector_ChecksNames(t *testing.T) {
	model := &schema.SellerModelWeights{
		FeatureNames: []string{"a", "b"},
		Parameters:   &schema.LogisticParameters{Weights: []float64{2, 0}, Bias: -1},
	}
	p, err := PredictVector(model, schema.SellerFeatureVector{FeatureNames: []string{"a", "b"}, Values: []float64{0.5, 9}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)

	_, err = PredictVector(model, schema.SellerFeatureVector{FeatureNames: []string{"b", "a"}, Values: []float64{0.5, 9}})
	assert.ErrorIs(t, err, schema.ErrFeatureMismatch)
}

func TestPrepareTrainingDataset(t *testing.T) {
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	listed, stayed := 1, 0
	properties := []schema.PropertyOpportunity{
		{ID: "a", Zip: "94102", MarketValue: 900000, SellerOutcome: &listed, OwnerType: "individual"},
		{ID: "b", Zip: "94102", MarketValue: 700000},
		{ID: "c", State: "TX", MarketValue: 300000, SellerOutcome: &stayed, IncomeBand: "middle"},
	}
	provider := marketdata.NewStaticProvider(map[string]*schema.MarketData{
		"zip:94102": {Listing: &schema.ListingMarket{MedianDaysOnMarket: schema.Ptr(12.0)}},
	})

	examples, err := PrepareTrainingDataset(context.Background(), properties, provider, asOf)
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, "a", examples[0].PropertyID)
	assert.Equal(t, 1, examples[0].Label)
	assert.Equal(t, "individual", examples[0].Groups[schema.AuditOwnerType])
	assert.Len(t, examples[0].Features, features.Count)

	names := features.FeatureNames()
	for i, n := range names {
		if n == "days_on_market" {
			assert.Equal(t, 12.0, examples[0].Features[i])
			assert.Equal(t, 0.0, examples[1].Features[i])
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = PrepareTrainingDataset(ctx, properties, provider, asOf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainer_InjectedRand(t *testing.T) {
	examples := separable(10)
	a := &Trainer{Options: DefaultOptions(), Rand: rand.New(rand.NewPCG(1, 2))}
	b := &Trainer{Options: DefaultOptions(), Rand: rand.New(rand.NewPCG(1, 2))}
	assert.Equal(t, a.shuffle(examples), b.shuffle(examples))
	assert.Len(t, a.shuffle(examples), 10)
}

func BenchmarkFitBoosting(b *testing.B) {
	examples := separable(200)
	tr := NewTrainer(Options{Algorithm: schema.GradientBoosting, SkipEvaluation: true})
	for b.Loop() {
		_, _ = tr.Fit(examples, nil, testNames)
	}
}
