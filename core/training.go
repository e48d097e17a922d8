package core

import (
	"context"
	"errors"

	"github.com/huangsam/propensity/core/features"
	"github.com/huangsam/propensity/core/model"
	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/input"
	"github.com/huangsam/propensity/internal/registry"
	"github.com/huangsam/propensity/schema"
)

// TrainResult is the outcome of a training run.
type TrainResult struct {
	Model    *schema.SellerModelWeights
	Path     string
	Examples int
}

// GetTrainResult trains a model on the labeled properties of the input file and persists it.
// It returns schema.ErrInsufficientData, with the example count, when too few properties are labeled.
func GetTrainResult(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*TrainResult, error) {
	if cfg.InputPath == "" {
		return nil, errors.New("--input is required")
	}
	props, err := input.LoadProperties(cfg.InputPath)
	if err != nil {
		return nil, err
	}
	provider, err := buildProvider(cfg, mgr)
	if err != nil {
		return nil, err
	}

	examples, err := model.PrepareTrainingDataset(ctx, props, provider, asOf(cfg))
	if err != nil {
		return nil, err
	}
	if !shouldSuppressHeader(ctx) {
		contract.LogInfo("Training model",
			"algorithm", string(cfg.Algorithm),
			"properties", len(props),
			"labeled", len(examples),
			"folds", cfg.Folds,
		)
	}

	rec := recorderFromContext(ctx)
	seed := cfg.Seed
	trainer := model.NewTrainer(model.Options{
		Algorithm:      cfg.Algorithm,
		Folds:          cfg.Folds,
		Seed:           &seed,
		SkipEvaluation: cfg.SkipEvaluation,
	})
	trained, err := trainer.Train(examples, features.FeatureNames())
	if err != nil {
		if rec != nil {
			rec.RecordError("train")
		}
		return &TrainResult{Examples: len(examples)}, err
	}

	path, err := registry.NewFileRegistry(modelDir(cfg)).Persist(trained)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		rec.RecordTraining(trained)
	}
	return &TrainResult{Model: trained, Path: path, Examples: len(examples)}, nil
}
