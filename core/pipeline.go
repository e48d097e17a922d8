package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/huangsam/propensity/core/scoring"
	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/input"
	"github.com/huangsam/propensity/internal/marketdata"
	"github.com/huangsam/propensity/internal/registry"
	"github.com/huangsam/propensity/schema"
)

// GetScoreResults loads the configured input file, then scores and ranks it.
func GetScoreResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.ScoreAndRankResult, error) {
	if cfg.InputPath == "" {
		return nil, errors.New("--input is required")
	}
	if !shouldSuppressHeader(ctx) {
		logScoreHeader(cfg)
	}
	props, err := input.LoadProperties(cfg.InputPath)
	if err != nil {
		return nil, err
	}
	return ScoreProperties(ctx, cfg, mgr, props)
}

// ScoreProperties scores and ranks an in-memory batch.
// When a run store is configured the run and every property score are recorded.
func ScoreProperties(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, props []schema.PropertyOpportunity) (*schema.ScoreAndRankResult, error) {
	if len(props) == 0 {
		return nil, errors.New("no properties to score")
	}
	provider, err := buildProvider(cfg, mgr)
	if err != nil {
		return nil, err
	}
	model := loadModel(cfg)

	var observers multiObserver
	rec := recorderFromContext(ctx)
	if rec != nil {
		observers = append(observers, rec)
	}
	tracker := beginRun(cfg, mgr, len(props))
	if tracker != nil {
		observers = append(observers, tracker)
	}

	opts := []scoring.Option{
		scoring.WithWorkers(cfg.Workers),
		scoring.WithModelWeight(cfg.ModelWeight),
		scoring.WithClock(func() time.Time { return asOf(cfg) }),
	}
	if len(cfg.ComputedWeights) > 0 {
		opts = append(opts, scoring.WithWeights(cfg.ComputedWeights))
	}
	if model != nil {
		opts = append(opts, scoring.WithModel(model))
	}
	if len(observers) > 0 {
		opts = append(opts, scoring.WithObserver(observers))
	}
	engine := scoring.NewEngine(provider, opts...)

	start := time.Now()
	result, err := engine.ScoreAndRank(ctx, props, scoring.RankOptions{
		Limit:  cfg.ResultLimit,
		Levels: cfg.GeoLevels,
		TopN:   cfg.TopN,
	})
	if rec != nil {
		rec.RecordLatency("score", time.Since(start))
		if err != nil {
			rec.RecordError("score")
		}
	}
	if err != nil {
		if tracker != nil {
			// Close the run with what was recorded before the failure
			tracker.end(int(tracker.scored.Load()), "")
		}
		return nil, fmt.Errorf("scoring failed: %w", err)
	}
	if tracker != nil {
		modelID := ""
		if result.ModelMetadata != nil {
			modelID = result.ModelMetadata.ID
		}
		tracker.end(len(props), modelID)
	}
	return result, nil
}

// buildProvider returns the market-data provider for the config, with the durable
// market cache in front of it when one is enabled.
func buildProvider(cfg *contract.Config, mgr contract.CacheManager) (contract.MarketDataProvider, error) {
	var source contract.MarketDataProvider = marketdata.NewStaticProvider(nil)
	if cfg.MarketDataPath != "" {
		fp, err := marketdata.NewFileProvider(cfg.MarketDataPath)
		if err != nil {
			return nil, err
		}
		contract.LogDebug("loaded market data", "path", cfg.MarketDataPath, "locations", fp.Len())
		source = fp
	}
	if mgr == nil {
		return source, nil
	}
	store := mgr.GetMarketStore()
	if store == nil {
		return source, nil
	}
	return marketdata.NewCachedProvider(source, store, cfg.CacheTTL), nil
}

// loadModel returns the latest trained model, or nil to score with heuristics only.
func loadModel(cfg *contract.Config) *schema.SellerModelWeights {
	if !cfg.UseModel {
		return nil
	}
	reg := registry.NewFileRegistry(modelDir(cfg))
	model, err := reg.LoadLatest()
	if err != nil {
		contract.LogWarn("Failed to load model, scoring with heuristics only", err)
		return nil
	}
	if model == nil {
		contract.LogDebug("no trained model found", "dir", reg.Dir)
	}
	return model
}

// modelDir returns the configured model directory or the default one.
func modelDir(cfg *contract.Config) string {
	if cfg.ModelDir != "" {
		return cfg.ModelDir
	}
	return contract.GetModelDir()
}

// asOf returns the configured reference time or now.
func asOf(cfg *contract.Config) time.Time {
	if cfg.AsOf.IsZero() {
		return time.Now().UTC()
	}
	return cfg.AsOf
}

// logScoreHeader logs what a scoring run is about to do.
func logScoreHeader(cfg *contract.Config) {
	levels := make([]string, 0, len(cfg.GeoLevels))
	for _, l := range cfg.GeoLevels {
		levels = append(levels, string(l))
	}
	contract.LogInfo("Scoring properties",
		"input", cfg.InputPath,
		"market_data", cfg.MarketDataPath,
		"as_of", asOf(cfg).Format(contract.DateFormat),
		"use_model", cfg.UseModel,
		"levels", strings.Join(levels, ","),
		"workers", cfg.Workers,
	)
}

// multiObserver fans one score out to several observers.
type multiObserver []contract.ScoreObserver

var _ contract.ScoreObserver = multiObserver{} // Compile-time check

// ObserveScore implements contract.ScoreObserver.
func (m multiObserver) ObserveScore(score schema.SellerPropensityScore) {
	for _, o := range m {
		o.ObserveScore(score)
	}
}

// runTracker records every score of one run into the run store.
type runTracker struct {
	store    contract.RunStore
	runID    int64
	scored   atomic.Int64
	failures atomic.Int64
}

var _ contract.ScoreObserver = &runTracker{} // Compile-time check

// beginRun opens a run in the run store. It returns nil when tracking is off or fails.
func beginRun(cfg *contract.Config, mgr contract.CacheManager, total int) *runTracker {
	if mgr == nil {
		return nil
	}
	store := mgr.GetRunStore()
	if store == nil {
		return nil
	}
	configParams := map[string]any{
		"input":        cfg.InputPath,
		"market_data":  cfg.MarketDataPath,
		"as_of":        asOf(cfg).Format(time.RFC3339),
		"use_model":    cfg.UseModel,
		"model_weight": cfg.ModelWeight,
		"workers":      cfg.Workers,
		"result_limit": cfg.ResultLimit,
		"properties":   total,
	}
	runID, err := store.BeginRun(time.Now(), configParams)
	if err != nil {
		contract.LogWarn("Score run tracking initialization failed", err)
		return nil
	}
	if runID <= 0 {
		return nil
	}
	return &runTracker{store: store, runID: runID}
}

// ObserveScore implements contract.ScoreObserver.
func (t *runTracker) ObserveScore(score schema.SellerPropensityScore) {
	t.scored.Add(1)
	if err := t.store.RecordScore(t.runID, score); err != nil {
		if t.failures.Add(1) == 1 {
			contract.LogWarn(fmt.Sprintf("Score run tracking failed for %s", score.PropertyID), err)
		}
	}
}

// end finalizes the run.
func (t *runTracker) end(total int, modelID string) {
	if n := t.failures.Load(); n > 1 {
		contract.LogWarn(fmt.Sprintf("Score run tracking failed for %d properties", n), nil)
	}
	if err := t.store.EndRun(t.runID, time.Now(), total, modelID); err != nil {
		contract.LogWarn("Failed to finalize score run tracking", err)
	}
}
