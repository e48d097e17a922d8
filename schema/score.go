package schema

import "time"

// ComponentResult is the outcome of one heuristic component.
type ComponentResult struct {
	Score      float64               `json:"score"`
	Confidence float64               `json:"confidence"`
	Metrics    map[MetricKey]float64 `json:"metrics"`
	Missing    []MetricKey           `json:"missing,omitempty"`
	Drivers    []string              `json:"drivers,omitempty"`
	Risks      []string              `json:"risks,omitempty"`
}

// ModelPrediction records how the trained model contributed to a score.
type ModelPrediction struct {
	ModelID     string    `json:"model_id"`
	Algorithm   Algorithm `json:"algorithm"`
	Probability float64   `json:"probability"`
	Blended     float64   `json:"blended"` // heuristic and model score after weighting
}

// GeographyKeys are the grouping keys of a property for each geography level.
type GeographyKeys struct {
	State        string `json:"state,omitempty"`
	Region       string `json:"region,omitempty"`
	Zip          string `json:"zip,omitempty"`
	County       string `json:"county,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
}

// Key returns the grouping key for the given level.
func (g GeographyKeys) Key(level GeoLevel) string {
	switch level {
	case StateLevel:
		return g.State
	case RegionLevel:
		return g.Region
	case ZipLevel:
		return g.Zip
	case CountyLevel:
		return g.County
	case NeighborhoodLevel:
		return g.Neighborhood
	default:
		return ""
	}
}

// PropertySummary is the human-facing identity of a scored property.
type PropertySummary struct {
	Address         string   `json:"address,omitempty"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	Zip             string   `json:"zip,omitempty"`
	OwnerType       string   `json:"owner_type,omitempty"`
	PriorityTier    string   `json:"priority_tier,omitempty"`
	MarketValue     float64  `json:"market_value"`
	EstimatedEquity *float64 `json:"estimated_equity,omitempty"`
	YearsInHome     *float64 `json:"years_in_home,omitempty"`
}

// SellerPropensityScore is the scored output for one property.
type SellerPropensityScore struct {
	PropertyID          string                           `json:"property_id"`
	Score               float64                          `json:"score"`
	Confidence          float64                          `json:"confidence"`
	HeuristicScore      float64                          `json:"heuristic_score"`
	HeuristicConfidence float64                          `json:"heuristic_confidence"`
	Components          map[ComponentKey]ComponentResult `json:"components"`
	Model               *ModelPrediction                 `json:"model,omitempty"`
	Drivers             []string                         `json:"drivers"`
	Risks               []string                         `json:"risks"`
	Signals             SellerSignals                    `json:"signals"`
	Geography           GeographyKeys                    `json:"geography"`
	Summary             PropertySummary                  `json:"summary"`
	ScoredAt            time.Time                        `json:"scored_at"`
}

// RankedProperty is a compact entry in a geography leaderboard.
type RankedProperty struct {
	PropertyID string  `json:"property_id"`
	Address    string  `json:"address,omitempty"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// GeographyRanking is the aggregate of all scored properties in one geography.
type GeographyRanking struct {
	Level          GeoLevel         `json:"level"`
	Key            string           `json:"key"`
	SampleSize     int              `json:"sample_size"`
	MeanScore      float64          `json:"mean_score"`
	MedianScore    float64          `json:"median_score"`
	MeanConfidence float64          `json:"mean_confidence"`
	MinScore       float64          `json:"min_score"`
	MaxScore       float64          `json:"max_score"`
	TopProperties  []RankedProperty `json:"top_properties"`
}

// ScoreSummary describes a whole scoring batch.
type ScoreSummary struct {
	TotalProperties     int     `json:"total_properties"`
	ReturnedProperties  int     `json:"returned_properties"`
	AverageScore        float64 `json:"average_score"`
	MedianScore         float64 `json:"median_score"`
	AverageConfidence   float64 `json:"average_confidence"`
	HighPropensityCount int     `json:"high_propensity_count"`
	ModelScoredCount    int     `json:"model_scored_count"`
}

// ModelMetadata is the public description of the model used by a batch.
type ModelMetadata struct {
	ID             string       `json:"id"`
	Algorithm      Algorithm    `json:"algorithm"`
	TrainedAt      time.Time    `json:"trained_at"`
	TrainingSize   int          `json:"training_size"`
	ValidationSize int          `json:"validation_size"`
	Metrics        ModelMetrics `json:"metrics"`
}

// ScoreAndRankResult is the batch output of the scoring engine.
type ScoreAndRankResult struct {
	Scores        []SellerPropensityScore         `json:"scores"`
	Rankings      map[GeoLevel][]GeographyRanking `json:"rankings"`
	Summary       ScoreSummary                    `json:"summary"`
	ModelMetadata *ModelMetadata                  `json:"model_metadata,omitempty"`
}
