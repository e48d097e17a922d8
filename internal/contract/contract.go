// Package contract provides interfaces and shared utilities for the propensity engine's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/propensity/schema"
)

// LocationLevel is the granularity of a market-data lookup.
type LocationLevel string

// Market-data lookup levels, from most to least specific.
const (
	ZipLocation   LocationLevel = "zip"
	CityLocation  LocationLevel = "city"
	StateLocation LocationLevel = "state"
)

// LocationKey identifies the area a market-data lookup is for.
type LocationKey struct {
	Level LocationLevel
	Value string
}

// String renders the key as "level:value", e.g. "zip:94102" or "city:austin|tx".
func (k LocationKey) String() string {
	return string(k.Level) + ":" + k.Value
}

// MarketDataProvider fetches market context for an area.
// A nil result with a nil error means the provider has no data for the key.
type MarketDataProvider interface {
	GetMarketData(ctx context.Context, key LocationKey) (*schema.MarketData, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetMarketStore() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	Clear() error
	// Prune deletes entries written before cutoff and reports how many went.
	Prune(cutoff time.Time) (int64, error)
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking score runs and the scores they produce.
type RunStore interface {
	// BeginRun creates a new score run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the score run with completion data
	EndRun(runID int64, endTime time.Time, totalProperties int, modelID string) error

	// RecordScore stores the final score of one property
	RecordScore(runID int64, score schema.SellerPropensityScore) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStatus, error)

	// GetAllRuns returns every recorded run, oldest first
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllScores returns every recorded property score, ordered by run and property
	GetAllScores() ([]schema.ScoreRecord, error)

	// Close closes the underlying connection
	Close() error
}

// ModelRegistry persists trained models and hands out the current one.
type ModelRegistry interface {
	// Persist writes the model and makes it the latest. It returns the timestamped path.
	Persist(model *schema.SellerModelWeights) (string, error)

	// LoadLatest returns the latest model, or nil when none was ever persisted
	LoadLatest() (*schema.SellerModelWeights, error)

	// History lists persisted models, newest first
	History() ([]schema.ModelHistoryEntry, error)
}

// ScoreObserver receives every property score produced by the scoring engine.
// Implementations must be safe for concurrent use.
type ScoreObserver interface {
	ObserveScore(score schema.SellerPropensityScore)
}
