package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentModelSchemaVersion is the version written by the model registry.
const CurrentModelSchemaVersion = 2

// ModelParameters is the algorithm-specific half of a trained model.
// Implementations are *LogisticParameters and *BoostingParameters.
type ModelParameters interface {
	Algorithm() Algorithm
	isModelParameters()
}

// LogisticParameters are the learned weights of a logistic regression.
type LogisticParameters struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Algorithm implements ModelParameters.
func (*LogisticParameters) Algorithm() Algorithm { return LogisticRegression }
func (*LogisticParameters) isModelParameters()   {}

// Stump is a depth-1 regression tree: x[FeatureIndex] <= Threshold goes left.
type Stump struct {
	FeatureIndex int     `json:"featureIndex"`
	Threshold    float64 `json:"threshold"`
	LeftValue    float64 `json:"leftValue"`
	RightValue   float64 `json:"rightValue"`
}

// Predict returns the leaf value for an already standardized vector.
func (s Stump) Predict(x []float64) float64 {
	if s.FeatureIndex < 0 || s.FeatureIndex >= len(x) {
		return 0
	}
	if x[s.FeatureIndex] <= s.Threshold {
		return s.LeftValue
	}
	return s.RightValue
}

// BoostingParameters are the learned stumps of a gradient-boosted ensemble.
type BoostingParameters struct {
	BaseScore    float64 `json:"baseScore"`
	LearningRate float64 `json:"learningRate"`
	Stumps       []Stump `json:"stumps"`
}

// Algorithm implements ModelParameters.
func (*BoostingParameters) Algorithm() Algorithm { return GradientBoosting }
func (*BoostingParameters) isModelParameters()   {}

// ModelMetrics are binary-classification metrics at a 0.5 threshold.
type ModelMetrics struct {
	Accuracy       float64 `json:"accuracy"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	LogLoss        float64 `json:"logLoss"`
	AUC            float64 `json:"auc"`
	TruePositives  int     `json:"truePositives"`
	FalsePositives int     `json:"falsePositives"`
	TrueNegatives  int     `json:"trueNegatives"`
	FalseNegatives int     `json:"falseNegatives"`
	Support        int     `json:"support"`
}

// FoldResult is the outcome of a single cross-validation fold.
type FoldResult struct {
	Fold           int          `json:"fold"`
	TrainSize      int          `json:"trainSize"`
	ValidationSize int          `json:"validationSize"`
	Metrics        ModelMetrics `json:"metrics"`
}

// CrossValidationResult aggregates k-fold results.
type CrossValidationResult struct {
	Folds   int          `json:"folds"`
	Results []FoldResult `json:"results"`
	Mean    ModelMetrics `json:"mean"`
}

// BiasGroup is the audit summary for one attribute value.
type BiasGroup struct {
	Attribute       AuditAttribute `json:"attribute"`
	Group           string         `json:"group"`
	Count           int            `json:"count"`
	MeanProbability float64        `json:"meanProbability"`
	PositiveRate    float64        `json:"positiveRate"`
	Lift            float64        `json:"lift"`
}

// BiasAuditResult compares predicted probabilities across demographic groups.
type BiasAuditResult struct {
	GlobalMean float64     `json:"globalMean"`
	Groups     []BiasGroup `json:"groups"`
}

// ModelEvaluation holds the optional evaluation artifacts of a training run.
type ModelEvaluation struct {
	CrossValidation *CrossValidationResult `json:"crossValidation,omitempty"`
	BiasAudit       *BiasAuditResult       `json:"biasAudit,omitempty"`
}

// SellerModelWeights is a trained model plus the metadata needed to score with it.
type SellerModelWeights struct {
	SchemaVersion   int                `json:"schemaVersion"`
	ID              string             `json:"id"`
	Algorithm       Algorithm          `json:"algorithm"`
	Parameters      ModelParameters    `json:"-"`
	FeatureNames    []string           `json:"featureNames"`
	FeatureMeans    []float64          `json:"featureMeans"`
	FeatureStdDevs  []float64          `json:"featureStdDevs"`
	TrainedAt       time.Time          `json:"trainedAt"`
	TrainingSize    int                `json:"trainingSize"`
	ValidationSize  int                `json:"validationSize"`
	Metrics         ModelMetrics       `json:"metrics"`
	TrainingMetrics *ModelMetrics      `json:"trainingMetrics,omitempty"`
	Hyperparameters map[string]float64 `json:"hyperparameters,omitempty"`
	Evaluation      *ModelEvaluation   `json:"evaluation,omitempty"`
}

// Stats returns the standardization statistics saved with the model.
func (m *SellerModelWeights) Stats() StandardizationStats {
	return StandardizationStats{Means: m.FeatureMeans, StdDevs: m.FeatureStdDevs}
}

// modelWeightsJSON mirrors SellerModelWeights with the parameters left raw.
type modelWeightsJSON struct {
	SchemaVersion   int                `json:"schemaVersion"`
	ID              string             `json:"id"`
	Algorithm       Algorithm          `json:"algorithm"`
	Parameters      json.RawMessage    `json:"modelParameters"`
	FeatureNames    []string           `json:"featureNames"`
	FeatureMeans    []float64          `json:"featureMeans"`
	FeatureStdDevs  []float64          `json:"featureStdDevs"`
	TrainedAt       time.Time          `json:"trainedAt"`
	TrainingSize    int                `json:"trainingSize"`
	ValidationSize  int                `json:"validationSize"`
	Metrics         ModelMetrics       `json:"metrics"`
	TrainingMetrics *ModelMetrics      `json:"trainingMetrics,omitempty"`
	Hyperparameters map[string]float64 `json:"hyperparameters,omitempty"`
	Evaluation      *ModelEvaluation   `json:"evaluation,omitempty"`
}

// MarshalJSON encodes the parameters as a tagged object under "modelParameters".
func (m SellerModelWeights) MarshalJSON() ([]byte, error) {
	params, err := EncodeModelParameters(m.Parameters)
	if err != nil {
		return nil, err
	}
	return json.Marshal(modelWeightsJSON{
		SchemaVersion:   m.SchemaVersion,
		ID:              m.ID,
		Algorithm:       m.Algorithm,
		Parameters:      params,
		FeatureNames:    m.FeatureNames,
		FeatureMeans:    m.FeatureMeans,
		FeatureStdDevs:  m.FeatureStdDevs,
		TrainedAt:       m.TrainedAt,
		TrainingSize:    m.TrainingSize,
		ValidationSize:  m.ValidationSize,
		Metrics:         m.Metrics,
		TrainingMetrics: m.TrainingMetrics,
		Hyperparameters: m.Hyperparameters,
		Evaluation:      m.Evaluation,
	})
}

// UnmarshalJSON decodes the current schema shape. Older shapes go through the registry migrations.
func (m *SellerModelWeights) UnmarshalJSON(data []byte) error {
	var raw modelWeightsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	params, err := DecodeModelParameters(raw.Parameters)
	if err != nil {
		return err
	}
	*m = SellerModelWeights{
		SchemaVersion:   raw.SchemaVersion,
		ID:              raw.ID,
		Algorithm:       params.Algorithm(),
		Parameters:      params,
		FeatureNames:    raw.FeatureNames,
		FeatureMeans:    raw.FeatureMeans,
		FeatureStdDevs:  raw.FeatureStdDevs,
		TrainedAt:       raw.TrainedAt,
		TrainingSize:    raw.TrainingSize,
		ValidationSize:  raw.ValidationSize,
		Metrics:         raw.Metrics,
		TrainingMetrics: raw.TrainingMetrics,
		Hyperparameters: raw.Hyperparameters,
		Evaluation:      raw.Evaluation,
	}
	return nil
}

// taggedParameters is the wire form of ModelParameters.
type taggedParameters struct {
	Type         Algorithm `json:"type"`
	Weights      []float64 `json:"weights,omitempty"`
	Bias         float64   `json:"bias,omitempty"`
	BaseScore    float64   `json:"baseScore,omitempty"`
	LearningRate float64   `json:"learningRate,omitempty"`
	Stumps       []Stump   `json:"stumps,omitempty"`
}

// EncodeModelParameters writes the parameters with a "type" discriminator.
func EncodeModelParameters(p ModelParameters) (json.RawMessage, error) {
	switch v := p.(type) {
	case *LogisticParameters:
		return json.Marshal(taggedParameters{Type: LogisticRegression, Weights: v.Weights, Bias: v.Bias})
	case *BoostingParameters:
		return json.Marshal(taggedParameters{Type: GradientBoosting, BaseScore: v.BaseScore, LearningRate: v.LearningRate, Stumps: v.Stumps})
	case nil:
		return nil, fmt.Errorf("%w: nil parameters", ErrUnknownModelParameters)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownModelParameters, p)
	}
}

// DecodeModelParameters reads a tagged parameters object.
// An unknown or missing type is read as logistic regression.
func DecodeModelParameters(data json.RawMessage) (ModelParameters, error) {
	if len(data) == 0 || string(data) == "null" {
		return &LogisticParameters{}, nil
	}
	var tagged taggedParameters
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("failed to decode model parameters: %w", err)
	}
	return NewModelParameters(tagged.Type, tagged.Weights, tagged.Bias, tagged.BaseScore, tagged.LearningRate, tagged.Stumps), nil
}

// NewModelParameters builds the variant for the given algorithm, defaulting to logistic regression.
func NewModelParameters(algo Algorithm, weights []float64, bias, baseScore, learningRate float64, stumps []Stump) ModelParameters {
	if algo == GradientBoosting {
		return &BoostingParameters{BaseScore: baseScore, LearningRate: learningRate, Stumps: stumps}
	}
	return &LogisticParameters{Weights: weights, Bias: bias}
}

// ModelHistoryEntry summarizes one persisted model file.
type ModelHistoryEntry struct {
	ID            string    `json:"id"`
	Algorithm     Algorithm `json:"algorithm"`
	TrainedAt     time.Time `json:"trained_at"`
	SchemaVersion int       `json:"schema_version"`
	Path          string    `json:"path"`
	TrainingSize  int       `json:"training_size"`
	AUC           float64   `json:"auc"`
	Accuracy      float64   `json:"accuracy"`
}
