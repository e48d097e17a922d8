package schema

import "time"

// CacheStatus represents the status of the market cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// RunStatus represents the status of the score-run store.
type RunStatus struct {
	Backend               string           `json:"backend"`
	Connected             bool             `json:"connected"`
	TotalRuns             int              `json:"total_runs"`
	LastRunID             int64            `json:"last_run_id"`
	LastRunTime           time.Time        `json:"last_run_time"`
	OldestRunTime         time.Time        `json:"oldest_run_time"`
	TotalPropertiesScored int              `json:"total_properties_scored"`
	TableSizes            map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the propensity_score_runs table.
type RunRecord struct {
	RunID           int64
	StartTime       time.Time
	EndTime         *time.Time
	RunDurationMs   *int
	TotalProperties *int
	ModelID         *string
	ConfigParams    *string
}

// ScoreRecord represents a row from the propensity_property_scores table.
type ScoreRecord struct {
	RunID                 int64
	PropertyID            string
	ScoredAt              time.Time
	State                 string
	Region                string
	Zip                   string
	Score                 float64
	Confidence            float64
	HeuristicScore        float64
	EquityReadiness       float64
	MarketHeat            float64
	AffordabilityPressure float64
	MacroMomentum         float64
	ModelProbability      *float64
	ScoreLabel            string
}
