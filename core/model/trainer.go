// Package model trains, evaluates and applies the seller propensity models.
package model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/creasty/defaults"
	"github.com/google/uuid"
	"github.com/huangsam/propensity/schema"
)

// MinTrainingExamples is the smallest labeled set a model is trained on.
const MinTrainingExamples = 6

// Options are the trainer hyperparameters. L2 and Seed are pointers so an
// explicit zero survives defaulting.
type Options struct {
	Algorithm            schema.Algorithm `default:"logistic-regression"`
	ValidationRatio      float64          `default:"0.2"`
	LearningRate         float64          `default:"0.05"`
	Iterations           int              `default:"1500"`
	L2                   *float64         `default:"0.0005"`
	BoostingLearningRate float64          `default:"0.1"`
	BoostingRounds       int              `default:"120"`
	MinSamplesLeaf       int              `default:"3"`
	Folds                int              `default:"5"`
	Seed                 *uint64          `default:"42"`
	SkipEvaluation       bool
}

// DefaultOptions returns the options with every default applied.
func DefaultOptions() Options {
	var opts Options
	_ = defaults.Set(&opts)
	return opts
}

func (o Options) l2() float64 {
	if o.L2 == nil {
		return 0
	}
	return *o.L2
}

func (o Options) seed() uint64 {
	if o.Seed == nil {
		return 0
	}
	return *o.Seed
}

// Hyperparameters flattens the options recorded on a trained model.
func (o Options) Hyperparameters() map[string]float64 {
	if o.Algorithm == schema.GradientBoosting {
		return map[string]float64{
			"learningRate":   o.BoostingLearningRate,
			"rounds":         float64(o.BoostingRounds),
			"minSamplesLeaf": float64(o.MinSamplesLeaf),
		}
	}
	return map[string]float64{
		"learningRate":   o.LearningRate,
		"iterations":     float64(o.Iterations),
		"regularization": o.l2(),
	}
}

// Trainer fits models. Rand drives every shuffle so runs are reproducible for a seed.
type Trainer struct {
	Options Options
	Rand    *rand.Rand
	Now     func() time.Time
}

// NewTrainer creates a trainer with an RNG seeded from the options.
// Zero-valued options and nil pointers are filled with defaults.
func NewTrainer(opts Options) *Trainer {
	if err := defaults.Set(&opts); err != nil {
		panic(fmt.Sprintf("trainer defaults: %v", err))
	}
	return &Trainer{
		Options: opts,
		Rand:    rand.New(rand.NewPCG(opts.seed(), opts.seed())),
		Now:     time.Now,
	}
}

// Train shuffles and splits the examples, fits a model, then evaluates it with
// cross-validation and a bias audit unless evaluation is skipped.
// It returns schema.ErrInsufficientData when fewer than MinTrainingExamples are given.
func (t *Trainer) Train(examples []schema.TrainingExample, featureNames []string) (*schema.SellerModelWeights, error) {
	if len(examples) < MinTrainingExamples {
		return nil, fmt.Errorf("%w: %d examples, need %d", schema.ErrInsufficientData, len(examples), MinTrainingExamples)
	}
	if err := checkExamples(examples, len(featureNames)); err != nil {
		return nil, err
	}

	shuffled := t.shuffle(examples)
	train, validation := splitExamples(shuffled, t.Options.ValidationRatio)

	model, err := t.Fit(train, validation, featureNames)
	if err != nil {
		return nil, err
	}

	if !t.Options.SkipEvaluation {
		evaluation := &schema.ModelEvaluation{}
		cv, err := t.CrossValidate(examples, featureNames, t.Options.Folds)
		if err != nil {
			return nil, fmt.Errorf("cross-validation failed: %w", err)
		}
		evaluation.CrossValidation = cv
		audit, err := AuditBias(model, examples)
		if err != nil {
			return nil, fmt.Errorf("bias audit failed: %w", err)
		}
		evaluation.BiasAudit = audit
		model.Evaluation = evaluation
	}
	return model, nil
}

// Fit trains one model on train and reports metrics on validation.
// When validation is empty the reported metrics are the training metrics.
func (t *Trainer) Fit(train, validation []schema.TrainingExample, featureNames []string) (*schema.SellerModelWeights, error) {
	if len(train) == 0 {
		return nil, fmt.Errorf("%w: empty training split", schema.ErrInsufficientData)
	}
	if err := checkExamples(append(train[:len(train):len(train)], validation...), len(featureNames)); err != nil {
		return nil, err
	}

	rows, labels := matrix(train)
	stats := FitStandardizer(rows)
	x := standardizeAll(rows, stats)

	var params schema.ModelParameters
	algorithm := t.Options.Algorithm
	switch algorithm {
	case schema.GradientBoosting:
		params = fitBoosting(x, labels, t.Options.BoostingLearningRate, t.Options.BoostingRounds, t.Options.MinSamplesLeaf)
	default:
		algorithm = schema.LogisticRegression
		params = fitLogistic(x, labels, t.Options.LearningRate, t.Options.Iterations, t.Options.l2())
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	model := &schema.SellerModelWeights{
		SchemaVersion:   schema.CurrentModelSchemaVersion,
		ID:              uuid.NewString(),
		Algorithm:       algorithm,
		Parameters:      params,
		FeatureNames:    append([]string(nil), featureNames...),
		FeatureMeans:    stats.Means,
		FeatureStdDevs:  stats.StdDevs,
		TrainedAt:       now().UTC(),
		TrainingSize:    len(train),
		ValidationSize:  len(validation),
		Hyperparameters: t.Options.Hyperparameters(),
	}

	trainMetrics, err := Evaluate(model, train)
	if err != nil {
		return nil, err
	}
	model.TrainingMetrics = &trainMetrics
	model.Metrics = trainMetrics
	if len(validation) > 0 {
		if model.Metrics, err = Evaluate(model, validation); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// shuffle returns a shuffled copy of the examples.
func (t *Trainer) shuffle(examples []schema.TrainingExample) []schema.TrainingExample {
	out := append([]schema.TrainingExample(nil), examples...)
	if t.Rand == nil {
		t.Rand = rand.New(rand.NewPCG(t.Options.seed(), t.Options.seed()))
	}
	t.Rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// splitExamples puts the trailing ratio share into validation, keeping at least one example on each side.
func splitExamples(examples []schema.TrainingExample, ratio float64) (train, validation []schema.TrainingExample) {
	n := len(examples)
	size := int(math.Round(float64(n) * ratio))
	size = max(1, min(size, n-1))
	return examples[:n-size], examples[n-size:]
}

func checkExamples(examples []schema.TrainingExample, width int) error {
	for _, ex := range examples {
		if len(ex.Features) != width {
			return fmt.Errorf("%w: example %s has %d features, want %d", schema.ErrFeatureMismatch, ex.PropertyID, len(ex.Features), width)
		}
	}
	return nil
}

func matrix(examples []schema.TrainingExample) ([][]float64, []float64) {
	rows := make([][]float64, len(examples))
	labels := make([]float64, len(examples))
	for i, ex := range examples {
		rows[i] = ex.Features
		labels[i] = float64(ex.Label)
	}
	return rows, labels
}
