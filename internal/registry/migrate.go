package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/propensity/schema"
)

// ErrUnsupportedSchema means a model file was written by a newer version.
var ErrUnsupportedSchema = errors.New("unsupported model schema version")

// migration upgrades an encoded model from version N to N+1.
type migration func(data []byte) ([]byte, error)

// migrations is indexed by the source version.
var migrations = map[int]migration{
	1: migrateV1ToV2,
}

// Decode reads a model file of any supported version, migrating it in memory.
// Files without a schemaVersion predate versioning and are read as version 1.
// It returns the model and the version the file was written with.
func Decode(data []byte) (*schema.SellerModelWeights, int, error) {
	var probe struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	version := max(probe.SchemaVersion, 1)
	if version > schema.CurrentModelSchemaVersion {
		return nil, version, fmt.Errorf("%w: %d", ErrUnsupportedSchema, version)
	}

	for v := version; v < schema.CurrentModelSchemaVersion; v++ {
		migrate, ok := migrations[v]
		if !ok {
			return nil, version, fmt.Errorf("%w: no migration from %d", ErrUnsupportedSchema, v)
		}
		var err error
		if data, err = migrate(data); err != nil {
			return nil, version, fmt.Errorf("migration from version %d failed: %w", v, err)
		}
	}

	var model schema.SellerModelWeights
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, version, fmt.Errorf("failed to decode model: %w", err)
	}
	return &model, version, nil
}

// modelV1 is the legacy flat shape: parameters live at the top level
// and metrics may be partial.
type modelV1 struct {
	ID              string                  `json:"id"`
	Algorithm       string                  `json:"algorithm"`
	Weights         []float64               `json:"weights"`
	Bias            float64                 `json:"bias"`
	BaseScore       float64                 `json:"baseScore"`
	LearningRate    float64                 `json:"learningRate"`
	Stumps          []schema.Stump          `json:"stumps"`
	FeatureNames    []string                `json:"featureNames"`
	FeatureMeans    []float64               `json:"featureMeans"`
	FeatureStdDevs  []float64               `json:"featureStdDevs"`
	TrainedAt       time.Time               `json:"trainedAt"`
	TrainingSize    int                     `json:"trainingSize"`
	ValidationSize  int                     `json:"validationSize"`
	Metrics         *schema.ModelMetrics    `json:"metrics"`
	Hyperparameters map[string]float64      `json:"hyperparameters"`
	Evaluation      *schema.ModelEvaluation `json:"evaluation"`
}

// migrateV1ToV2 moves the flat parameters under a tagged "modelParameters" object.
// Unknown algorithms become logistic regression and missing metrics become 0.
func migrateV1ToV2(data []byte) ([]byte, error) {
	var old modelV1
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, err
	}
	algo := schema.Algorithm(strings.ToLower(strings.TrimSpace(old.Algorithm)))
	params := schema.NewModelParameters(algo, old.Weights, old.Bias, old.BaseScore, old.LearningRate, old.Stumps)

	var metrics schema.ModelMetrics
	if old.Metrics != nil {
		metrics = *old.Metrics
	}
	return json.Marshal(schema.SellerModelWeights{
		SchemaVersion:   2,
		ID:              old.ID,
		Algorithm:       params.Algorithm(),
		Parameters:      params,
		FeatureNames:    old.FeatureNames,
		FeatureMeans:    old.FeatureMeans,
		FeatureStdDevs:  old.FeatureStdDevs,
		TrainedAt:       old.TrainedAt,
		TrainingSize:    old.TrainingSize,
		ValidationSize:  old.ValidationSize,
		Metrics:         metrics,
		Hyperparameters: old.Hyperparameters,
		Evaluation:      old.Evaluation,
	})
}
