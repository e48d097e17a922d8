// Package core has core logic for scoring, ranking and training.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/outwriter"
	"github.com/huangsam/propensity/internal/registry"
	"github.com/huangsam/propensity/schema"
)

// ExecutorFunc defines the function signature for executing the different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecutePropensityScore scores the input properties and prints the ranked scores.
// It serves as the main entry point for the 'score' command.
func ExecutePropensityScore(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	result, err := GetScoreResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	return outwriter.NewOutWriter().WriteScores(result, cfg, duration)
}

// ExecutePropensityRank scores the input properties and prints the geography leaderboards.
// It serves as the main entry point for the 'rank' command.
func ExecutePropensityRank(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	result, err := GetScoreResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	return outwriter.NewOutWriter().WriteRankings(result, cfg, duration)
}

// ExecutePropensityTrain trains and persists a model, then prints its summary.
// Too few labeled properties is not an error: scoring keeps using heuristics only.
func ExecutePropensityTrain(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	result, err := GetTrainResult(ctx, cfg, mgr)
	if errors.Is(err, schema.ErrInsufficientData) {
		contract.LogWarn("Not enough labeled properties to train a model, scoring will use heuristics only", err)
		return nil
	}
	if err != nil {
		return err
	}
	contract.LogInfo("Trained model",
		"id", result.Model.ID,
		"path", result.Path,
		"examples", result.Examples,
		"duration", time.Since(start).String(),
	)
	return outwriter.NewOutWriter().WriteModel(result.Model, cfg)
}

// ExecutePropensityWeights prints the active scoring weights. It needs no input data.
func ExecutePropensityWeights(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	return outwriter.NewOutWriter().WriteWeights(cfg.ComputedWeights, cfg.ModelWeight, cfg)
}

// ExecuteModelStatus prints the latest trained model.
func ExecuteModelStatus(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	reg := registry.NewFileRegistry(modelDir(cfg))
	model, err := reg.LoadLatest()
	if err != nil {
		return err
	}
	if model == nil {
		return fmt.Errorf("no trained model found in %s", reg.Dir)
	}
	return outwriter.NewOutWriter().WriteModel(model, cfg)
}

// ExecuteModelHistory prints every persisted model, newest first.
func ExecuteModelHistory(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	entries, err := registry.NewFileRegistry(modelDir(cfg)).History()
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteHistory(entries, cfg)
}

// ExecuteModelMigrate rewrites persisted models at the current schema version.
func ExecuteModelMigrate(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	reg := registry.NewFileRegistry(modelDir(cfg))
	migrated, err := reg.Migrate()
	if err != nil {
		return err
	}
	if migrated == 0 {
		_, err = fmt.Fprintf(os.Stdout, "No model migration needed in %s (schema version %d)\n", reg.Dir, schema.CurrentModelSchemaVersion)
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "Successfully migrated %d model files in %s to schema version %d\n", migrated, reg.Dir, schema.CurrentModelSchemaVersion)
	return err
}
