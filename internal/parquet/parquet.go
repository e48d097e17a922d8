// Package parquet provides data structures and functions for exporting propensity
// scores and score runs to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"github.com/parquet-go/parquet-go"
)

// ScoreRun represents a single scoring run with metadata.
// This struct maps to the propensity_score_runs database table.
type ScoreRun struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalProperties is the number of properties scored in this run
	TotalProperties int32 `parquet:"total_properties,snappy"`

	// ModelID identifies the trained model used, if any (nullable)
	ModelID *string `parquet:"model_id,optional,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// PropertyScore is one recorded property score inside a run.
// This struct maps to the propensity_property_scores database table.
type PropertyScore struct {
	RunID                 int64     `parquet:"run_id,snappy"`
	PropertyID            string    `parquet:"property_id,snappy"`
	ScoredAt              time.Time `parquet:"scored_at,snappy"`
	State                 string    `parquet:"state,snappy"`
	Region                string    `parquet:"region,snappy"`
	Zip                   string    `parquet:"zip,snappy"`
	Score                 float64   `parquet:"score,snappy"`
	Confidence            float64   `parquet:"confidence,snappy"`
	HeuristicScore        float64   `parquet:"heuristic_score,snappy"`
	EquityReadiness       float64   `parquet:"equity_readiness,snappy"`
	MarketHeat            float64   `parquet:"market_heat,snappy"`
	AffordabilityPressure float64   `parquet:"affordability_pressure,snappy"`
	MacroMomentum         float64   `parquet:"macro_momentum,snappy"`
	ModelProbability      *float64  `parquet:"model_probability,optional,snappy"`
	ScoreLabel            string    `parquet:"score_label,snappy"`
}

// ScoreRow is the flat Parquet form of a freshly computed score, used by
// --output parquet. Drivers and risks are joined with "; ".
type ScoreRow struct {
	Rank             int32    `parquet:"rank,snappy"`
	PropertyID       string   `parquet:"property_id,snappy"`
	Address          string   `parquet:"address,snappy"`
	State            string   `parquet:"state,snappy"`
	Region           string   `parquet:"region,snappy"`
	Zip              string   `parquet:"zip,snappy"`
	Score            float64  `parquet:"score,snappy"`
	Confidence       float64  `parquet:"confidence,snappy"`
	Label            string   `parquet:"label,snappy"`
	HeuristicScore   float64  `parquet:"heuristic_score,snappy"`
	EquityReadiness  float64  `parquet:"equity_readiness,snappy"`
	MarketHeat       float64  `parquet:"market_heat,snappy"`
	Affordability    float64  `parquet:"affordability_pressure,snappy"`
	MacroMomentum    float64  `parquet:"macro_momentum,snappy"`
	ModelProbability *float64 `parquet:"model_probability,optional,snappy"`
	Drivers          string   `parquet:"drivers,snappy"`
	Risks            string   `parquet:"risks,snappy"`
}

// WriteScoreRunsParquet writes a slice of ScoreRun structs to a Parquet file.
func WriteScoreRunsParquet(data []ScoreRun, outputPath string) error {
	return writeFile(data, outputPath)
}

// WritePropertyScoresParquet writes a slice of PropertyScore structs to a Parquet file.
func WritePropertyScoresParquet(data []PropertyScore, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteScoreRows writes score rows to w.
func WriteScoreRows(w io.Writer, rows []ScoreRow) error {
	writer := parquet.NewGenericWriter[ScoreRow](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	return writer.Close()
}

func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertRunRecords converts schema.RunRecord to ScoreRun for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []ScoreRun {
	result := make([]ScoreRun, len(records))
	for i, record := range records {
		result[i] = ScoreRun{
			RunID:           record.RunID,
			StartTime:       record.StartTime,
			EndTime:         record.EndTime,
			RunDurationMs:   toInt32Ptr(record.RunDurationMs),
			TotalProperties: int32(schema.Deref(record.TotalProperties, 0)),
			ModelID:         record.ModelID,
			ConfigParams:    record.ConfigParams,
		}
	}
	return result
}

// ConvertScoreRecords converts schema.ScoreRecord to PropertyScore for Parquet export.
func ConvertScoreRecords(records []schema.ScoreRecord) []PropertyScore {
	result := make([]PropertyScore, len(records))
	for i, r := range records {
		result[i] = PropertyScore{
			RunID:                 r.RunID,
			PropertyID:            r.PropertyID,
			ScoredAt:              r.ScoredAt,
			State:                 r.State,
			Region:                r.Region,
			Zip:                   r.Zip,
			Score:                 r.Score,
			Confidence:            r.Confidence,
			HeuristicScore:        r.HeuristicScore,
			EquityReadiness:       r.EquityReadiness,
			MarketHeat:            r.MarketHeat,
			AffordabilityPressure: r.AffordabilityPressure,
			MacroMomentum:         r.MacroMomentum,
			ModelProbability:      r.ModelProbability,
			ScoreLabel:            r.ScoreLabel,
		}
	}
	return result
}

// ConvertScores flattens ranked scores into ScoreRow values. Rank is 1-based.
func ConvertScores(scores []schema.SellerPropensityScore) []ScoreRow {
	rows := make([]ScoreRow, len(scores))
	for i, s := range scores {
		var probability *float64
		if s.Model != nil {
			p := s.Model.Probability
			probability = &p
		}
		rows[i] = ScoreRow{
			Rank:             int32(i + 1),
			PropertyID:       s.PropertyID,
			Address:          s.Summary.Address,
			State:            s.Geography.State,
			Region:           s.Geography.Region,
			Zip:              s.Geography.Zip,
			Score:            s.Score,
			Confidence:       s.Confidence,
			Label:            contract.GetPlainLabel(s.Score),
			HeuristicScore:   s.HeuristicScore,
			EquityReadiness:  s.Components[schema.OwnerEquityReadiness].Score,
			MarketHeat:       s.Components[schema.MarketHeat].Score,
			Affordability:    s.Components[schema.AffordabilityPressure].Score,
			MacroMomentum:    s.Components[schema.MacroEconomicMomentum].Score,
			ModelProbability: probability,
			Drivers:          strings.Join(s.Drivers, "; "),
			Risks:            strings.Join(s.Risks, "; "),
		}
	}
	return rows
}

func toInt32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}
