// Package scoring blends heuristic components with the trained model into seller propensity scores.
package scoring

import (
	"context"
	"maps"
	"time"

	"github.com/huangsam/propensity/core/agg"
	"github.com/huangsam/propensity/core/algo"
	"github.com/huangsam/propensity/core/features"
	"github.com/huangsam/propensity/core/model"
	"github.com/huangsam/propensity/core/signals"
	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/marketdata"
	"github.com/huangsam/propensity/schema"
	"golang.org/x/sync/errgroup"
)

// Blend constants for the trained model.
const (
	DefaultModelWeight   = 0.4
	modelConfidenceFloor = 40.0
)

// Engine scores properties. It holds no process-global state; the model is shared read-only.
type Engine struct {
	provider      contract.MarketDataProvider
	model         *schema.SellerModelWeights
	weights       map[schema.ComponentKey]float64
	metricWeights map[schema.ComponentKey]map[schema.MetricKey]float64
	modelWeight   float64
	workers       int
	now           func() time.Time
	observer      contract.ScoreObserver
}

// Option configures an Engine.
type Option func(*Engine)

// WithModel blends the given trained model into every score. A nil model means heuristics only.
func WithModel(m *schema.SellerModelWeights) Option {
	return func(e *Engine) { e.model = m }
}

// WithWeights overrides the component weights. Missing components keep their defaults.
func WithWeights(weights map[schema.ComponentKey]float64) Option {
	return func(e *Engine) {
		maps.Copy(e.weights, weights)
	}
}

// WithModelWeight sets the model share of the final score, in [0,1].
func WithModelWeight(w float64) Option {
	return func(e *Engine) { e.modelWeight = algo.Clamp01(w) }
}

// WithWorkers bounds the number of properties scored concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithClock sets the reference time used for signals and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver reports every score to o.
func WithObserver(o contract.ScoreObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates a scoring engine over a market-data provider. A nil provider means no market data.
func NewEngine(provider contract.MarketDataProvider, opts ...Option) *Engine {
	e := &Engine{
		provider:      provider,
		weights:       schema.GetDefaultComponentWeights(),
		metricWeights: make(map[schema.ComponentKey]map[schema.MetricKey]float64, len(schema.AllComponents)),
		modelWeight:   DefaultModelWeight,
		workers:       contract.DefaultWorkers,
		now:           time.Now,
	}
	for _, c := range schema.AllComponents {
		e.metricWeights[c] = schema.GetDefaultMetricWeights(c)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the model blended by the engine, or nil.
func (e *Engine) Model() *schema.SellerModelWeights {
	return e.model
}

// RankOptions controls the batch output of ScoreAndRank.
type RankOptions struct {
	Limit  int               // scores returned; non-positive returns all
	Levels []schema.GeoLevel // leaderboard levels; empty means all
	TopN   int               // top properties per geography
}

// ScoreProperty scores a single property with a fresh market-data session.
func (e *Engine) ScoreProperty(ctx context.Context, p schema.PropertyOpportunity) (schema.SellerPropensityScore, error) {
	session := marketdata.NewSession(e.provider)
	score := e.score(ctx, session, p, e.now().UTC())
	if err := ctx.Err(); err != nil {
		return schema.SellerPropensityScore{}, err
	}
	return score, nil
}

// ScoreAndRank scores every property in parallel over one shared market-data session,
// then builds geography leaderboards from all scores and returns the top Limit scores.
func (e *Engine) ScoreAndRank(ctx context.Context, properties []schema.PropertyOpportunity, opts RankOptions) (*schema.ScoreAndRankResult, error) {
	session := marketdata.NewSession(e.provider)
	asOf := e.now().UTC()
	scores := make([]schema.SellerPropensityScore, len(properties))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.workers))
	for i, p := range properties {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = e.score(gctx, session, p, asOf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contract.LogDebug("scored batch", "properties", len(properties), "market_fetches", session.Fetches())

	result := &schema.ScoreAndRankResult{
		Rankings: agg.RankAllGeographies(scores, opts.Levels, opts.TopN),
		Summary:  summarize(scores),
	}
	result.Scores = algo.RankScores(scores, opts.Limit)
	result.Summary.ReturnedProperties = len(result.Scores)
	if e.model != nil {
		result.ModelMetadata = &schema.ModelMetadata{
			ID:             e.model.ID,
			Algorithm:      e.model.Algorithm,
			TrainedAt:      e.model.TrainedAt,
			TrainingSize:   e.model.TrainingSize,
			ValidationSize: e.model.ValidationSize,
			Metrics:        e.model.Metrics,
		}
	}
	return result, nil
}

// score computes the full score of one property. It never fails: missing data lowers confidence.
func (e *Engine) score(ctx context.Context, session *marketdata.Session, p schema.PropertyOpportunity, asOf time.Time) schema.SellerPropensityScore {
	market := session.Lookup(ctx, p)
	sig, vector := features.Build(p, market, asOf)

	components := computeComponents(p, sig, componentInput{
		market:  market,
		weights: e.metricWeights,
		years:   signals.YearsInHome(p, asOf),
	})
	heuristic, heuristicConfidence := combine(components, e.weights)
	drivers, risks := collectPhrases(components)

	out := schema.SellerPropensityScore{
		PropertyID:          p.ID,
		Score:               heuristic,
		Confidence:          heuristicConfidence,
		HeuristicScore:      heuristic,
		HeuristicConfidence: heuristicConfidence,
		Components:          components,
		Drivers:             drivers,
		Risks:               risks,
		Signals:             sig,
		Geography:           schema.GeographyOf(p),
		Summary:             schema.SummaryOf(p),
		ScoredAt:            asOf,
	}

	if e.model != nil {
		probability, err := model.PredictVector(e.model, vector)
		if err != nil {
			contract.LogDebug("skipping model for property", "property", p.ID, "error", err.Error())
		} else {
			out.Score = algo.ClampScore((1-e.modelWeight)*heuristic + e.modelWeight*probability*100)
			out.Model = &schema.ModelPrediction{
				ModelID:     e.model.ID,
				Algorithm:   e.model.Algorithm,
				Probability: probability,
				Blended:     out.Score,
			}
			out.Confidence = algo.ClampScore(min(100, (1-e.modelWeight)*heuristicConfidence+modelConfidenceFloor))
		}
	}

	if e.observer != nil {
		e.observer.ObserveScore(out)
	}
	return out
}

// summarize describes the whole batch before the result limit is applied.
func summarize(scores []schema.SellerPropensityScore) schema.ScoreSummary {
	summary := schema.ScoreSummary{TotalProperties: len(scores)}
	if len(scores) == 0 {
		return summary
	}
	values := make([]float64, len(scores))
	confidences := make([]float64, len(scores))
	for i, s := range scores {
		values[i] = s.Score
		confidences[i] = s.Confidence
		if s.Score >= contract.HighPropensityThreshold {
			summary.HighPropensityCount++
		}
		if s.Model != nil {
			summary.ModelScoredCount++
		}
	}
	summary.AverageScore = algo.Mean(values)
	summary.MedianScore = algo.Median(values)
	summary.AverageConfidence = algo.Mean(confidences)
	return summary
}
