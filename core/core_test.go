package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/iocache"
	"github.com/huangsam/propensity/internal/registry"
	"github.com/huangsam/propensity/internal/telemetry"
	"github.com/huangsam/propensity/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAsOf = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func writeJSONFile(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testProperties(n int, labeled bool) []schema.PropertyOpportunity {
	zips := []string{"78701", "94102"}
	props := make([]schema.PropertyOpportunity, 0, n)
	for i := range n {
		high := i%2 == 0
		equity, years, listing := 40000.0, 1.0+float64(i%3), 20.0
		if high {
			equity, years, listing = 250000.0, 8.0+float64(i%4), 85.0
		}
		p := schema.PropertyOpportunity{
			ID:              fmt.Sprintf("p-%02d", i),
			Address:         fmt.Sprintf("%d Main St", i+1),
			City:            "Austin",
			State:           "TX",
			Zip:             zips[i%2],
			OwnerType:       []string{"individual", "trust"}[i%2],
			MarketValue:     400000,
			EstimatedEquity: schema.Ptr(equity),
			YearsInHome:     schema.Ptr(years),
			ListingScore:    schema.Ptr(listing),
		}
		if labeled {
			label := 0
			if high {
				label = 1
			}
			p.SellerOutcome = schema.Ptr(label)
		}
		props = append(props, p)
	}
	return props
}

func testMarket() map[string]*schema.MarketData {
	return map[string]*schema.MarketData{
		"zip:78701": {
			Listing: &schema.ListingMarket{MedianDaysOnMarket: schema.Ptr(18.0), MonthsOfSupply: schema.Ptr(1.5)},
		},
		"state:tx": {
			Economic: &schema.EconomicIndicators{MortgageRate30Y: schema.Ptr(6.5), UnemploymentRate: schema.Ptr(4.0)},
		},
	}
}

func testConfig(t *testing.T, props []schema.PropertyOpportunity) *contract.Config {
	t.Helper()
	dir := t.TempDir()
	return &contract.Config{
		InputPath:      writeJSONFile(t, dir, "properties.json", props),
		MarketDataPath: writeJSONFile(t, dir, "market.json", testMarket()),
		ModelDir:       filepath.Join(dir, "models"),
		AsOf:           testAsOf,
		ResultLimit:    contract.DefaultResultLimit,
		Workers:        2,
		GeoLevels:      []schema.GeoLevel{schema.StateLevel, schema.ZipLevel},
		TopN:           contract.DefaultTopN,
		UseModel:       true,
		ModelWeight:    contract.DefaultModelWeight,
		Algorithm:      schema.LogisticRegression,
		Folds:          3,
		Seed:           7,
		CacheTTL:       contract.DefaultCacheTTL,
	}
}

func TestGetScoreResults(t *testing.T) {
	cfg := testConfig(t, testProperties(6, false))
	ctx := WithSuppressHeader(context.Background())

	result, err := GetScoreResults(ctx, cfg, nil)
	require.NoError(t, err)

	require.Len(t, result.Scores, 6)
	assert.Equal(t, 6, result.Summary.TotalProperties)
	assert.Nil(t, result.ModelMetadata, "no model was trained")
	for i := 1; i < len(result.Scores); i++ {
		assert.GreaterOrEqual(t, result.Scores[i-1].Score, result.Scores[i].Score)
	}
	assert.Contains(t, result.Rankings, schema.StateLevel)
	assert.Len(t, result.Rankings[schema.ZipLevel], 2)
	assert.NotContains(t, result.Rankings, schema.CountyLevel)
}

func TestGetScoreResultsErrors(t *testing.T) {
	ctx := context.Background()

	_, err := GetScoreResults(ctx, &contract.Config{}, nil)
	assert.EqualError(t, err, "--input is required")

	cfg := testConfig(t, testProperties(2, false))
	cfg.MarketDataPath = filepath.Join(t.TempDir(), "missing.json")
	_, err = GetScoreResults(ctx, cfg, nil)
	assert.Error(t, err)

	_, err = ScoreProperties(ctx, cfg, nil, nil)
	assert.EqualError(t, err, "no properties to score")
}

func TestScorePropertiesRecordsRun(t *testing.T) {
	props := testProperties(5, false)
	cfg := testConfig(t, props)
	cfg.ResultLimit = 2

	store, err := iocache.NewRunStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetMarketStore").Return(nil)
	mgr.On("GetRunStore").Return(store)

	result, err := ScoreProperties(WithSuppressHeader(context.Background()), cfg, mgr, props)
	require.NoError(t, err)
	assert.Len(t, result.Scores, 2)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].TotalProperties)
	assert.Equal(t, 5, *runs[0].TotalProperties)
	assert.NotNil(t, runs[0].EndTime)

	scores, err := store.GetAllScores()
	require.NoError(t, err)
	assert.Len(t, scores, 5, "every property is recorded, not only the returned ones")
	mgr.AssertExpectations(t)
}

func TestScorePropertiesClosesRunOnFailure(t *testing.T) {
	props := testProperties(4, false)
	cfg := testConfig(t, props)

	store, err := iocache.NewRunStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetMarketStore").Return(nil)
	mgr.On("GetRunStore").Return(store)

	ctx, cancel := context.WithCancel(WithSuppressHeader(context.Background()))
	cancel()
	_, err = ScoreProperties(ctx, cfg, mgr, props)
	require.ErrorIs(t, err, context.Canceled)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotNil(t, runs[0].EndTime, "a failed run is still finalized")
	require.NotNil(t, runs[0].TotalProperties)
	assert.Zero(t, *runs[0].TotalProperties)
}

func TestScorePropertiesUsesMarketCache(t *testing.T) {
	props := testProperties(4, false)
	cfg := testConfig(t, props)

	market, err := iocache.NewCacheStore("propensity_market_cache", schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer func() { _ = market.Close() }()

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetMarketStore").Return(market)
	mgr.On("GetRunStore").Return(nil)

	first, err := ScoreProperties(context.Background(), cfg, mgr, props)
	require.NoError(t, err)

	status, err := market.GetStatus()
	require.NoError(t, err)
	assert.Positive(t, status.TotalEntries)

	// Served from the cache once the snapshot file is gone
	require.NoError(t, os.Remove(cfg.MarketDataPath))
	cfg.MarketDataPath = ""
	second, err := ScoreProperties(context.Background(), cfg, mgr, props)
	require.NoError(t, err)
	for i := range first.Scores {
		assert.Equal(t, first.Scores[i].PropertyID, second.Scores[i].PropertyID)
		assert.InDelta(t, first.Scores[i].Score, second.Scores[i].Score, 1e-9)
	}
}

func TestTrainThenScoreWithModel(t *testing.T) {
	props := testProperties(20, true)
	cfg := testConfig(t, props)
	rec := telemetry.New()
	ctx := WithRecorder(WithSuppressHeader(context.Background()), rec)

	trained, err := GetTrainResult(ctx, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, trained.Model)
	assert.Equal(t, 20, trained.Examples)
	assert.FileExists(t, trained.Path)

	history, err := registry.NewFileRegistry(cfg.ModelDir).History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, trained.Model.ID, history[0].ID)

	result, err := GetScoreResults(ctx, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, result.ModelMetadata)
	assert.Equal(t, trained.Model.ID, result.ModelMetadata.ID)
	assert.Equal(t, 20, result.Summary.ModelScoredCount)

	cfg.UseModel = false
	heuristic, err := GetScoreResults(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, heuristic.ModelMetadata)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, rec.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "propensity_training_runs_total")
	assert.Contains(t, string(data), "propensity_scores_total")
}

func TestTrainInsufficientData(t *testing.T) {
	props := append(testProperties(3, true), testProperties(4, false)...)
	for i := range props {
		props[i].ID = fmt.Sprintf("q-%d", i)
	}
	cfg := testConfig(t, props)
	ctx := WithSuppressHeader(context.Background())

	result, err := GetTrainResult(ctx, cfg, nil)
	require.ErrorIs(t, err, schema.ErrInsufficientData)
	assert.Equal(t, 3, result.Examples)

	assert.NoError(t, ExecutePropensityTrain(ctx, cfg, nil))
	_, err = os.Stat(cfg.ModelDir)
	assert.True(t, os.IsNotExist(err), "nothing is persisted")
}

func TestExecuteModelStatusWithoutModel(t *testing.T) {
	cfg := &contract.Config{ModelDir: t.TempDir()}
	err := ExecuteModelStatus(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "no trained model found")
}

func TestExecuteModelMigrateEmpty(t *testing.T) {
	cfg := &contract.Config{ModelDir: t.TempDir()}
	assert.NoError(t, ExecuteModelMigrate(context.Background(), cfg, nil))
}

type countingObserver struct{ n int }

func (c *countingObserver) ObserveScore(schema.SellerPropensityScore) { c.n++ }

func TestMultiObserver(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	m := multiObserver{a, b}
	m.ObserveScore(schema.SellerPropensityScore{})
	m.ObserveScore(schema.SellerPropensityScore{})
	assert.Equal(t, 2, a.n)
	assert.Equal(t, 2, b.n)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.False(t, shouldSuppressHeader(ctx))
	assert.Nil(t, recorderFromContext(ctx))

	rec := telemetry.New()
	ctx = WithRecorder(WithSuppressHeader(ctx), rec)
	assert.True(t, shouldSuppressHeader(ctx))
	assert.Same(t, rec, recorderFromContext(ctx))
}

func TestAsOfAndModelDir(t *testing.T) {
	assert.Equal(t, testAsOf, asOf(&contract.Config{AsOf: testAsOf}))
	assert.False(t, asOf(&contract.Config{}).IsZero())
	assert.Equal(t, "/tmp/models", modelDir(&contract.Config{ModelDir: "/tmp/models"}))
	assert.Equal(t, contract.GetModelDir(), modelDir(&contract.Config{}))
}
