package parquet

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/propensity/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func sampleRuns() []ScoreRun {
	now := time.Now()
	end := now.Add(2 * time.Second)
	duration := int32(2000)
	model := "7d0c1a52-model"
	config := `{"limit":25,"levels":["zip"]}`
	return []ScoreRun{
		{RunID: 1, StartTime: now, EndTime: &end, RunDurationMs: &duration, TotalProperties: 40, ModelID: &model, ConfigParams: &config},
		{RunID: 2, StartTime: now}, // still running
	}
}

func TestScoreRunStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(ScoreRun))
	for _, col := range []string{"run_id", "start_time", "end_time", "run_duration_ms", "total_properties", "model_id", "config_params"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}
}

func TestPropertyScoreStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(PropertyScore))
	for _, col := range []string{
		"run_id", "property_id", "scored_at", "state", "region", "zip",
		"score", "confidence", "heuristic_score",
		"equity_readiness", "market_heat", "affordability_pressure", "macro_momentum",
		"model_probability", "score_label",
	} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}
}

func TestWriteScoreRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	data := sampleRuns()
	require.NoError(t, WriteScoreRunsParquet(data, outputPath))

	got := readAll[ScoreRun](t, outputPath)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].RunID)
	assert.Equal(t, int32(40), got[0].TotalProperties)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, *data[0].EndTime, *got[0].EndTime, time.Nanosecond)
	require.NotNil(t, got[0].ModelID)
	assert.Equal(t, "7d0c1a52-model", *got[0].ModelID)

	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ModelID)
	assert.Nil(t, got[1].ConfigParams)
}

func TestWritePropertyScoresParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "scores.parquet")
	p := 0.72
	data := []PropertyScore{
		{RunID: 1, PropertyID: "p-1", ScoredAt: time.Now(), Zip: "94102", Score: 71.5, Confidence: 80, ModelProbability: &p, ScoreLabel: "Likely"},
		{RunID: 1, PropertyID: "p-2", ScoredAt: time.Now(), Zip: "78701", Score: 22.1, Confidence: 30, ScoreLabel: "Unlikely"},
	}
	require.NoError(t, WritePropertyScoresParquet(data, outputPath))

	got := readAll[PropertyScore](t, outputPath)
	require.Len(t, got, 2)
	assert.Equal(t, "p-1", got[0].PropertyID)
	assert.InDelta(t, 71.5, got[0].Score, 1e-9)
	require.NotNil(t, got[0].ModelProbability)
	assert.InDelta(t, 0.72, *got[0].ModelProbability, 1e-9)
	assert.Nil(t, got[1].ModelProbability)
	assert.Equal(t, "Unlikely", got[1].ScoreLabel)
}

func TestWriteParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteScoreRunsParquet([]ScoreRun{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteParquet_InvalidPath(t *testing.T) {
	err := WriteScoreRunsParquet(sampleRuns(), "/nonexistent/directory/output.parquet")
	assert.Error(t, err)
	err = WritePropertyScoresParquet(nil, "/nonexistent/directory/output.parquet")
	assert.Error(t, err)
}

func TestConvertRunRecords(t *testing.T) {
	duration := 1500
	total := 12
	records := []schema.RunRecord{
		{RunID: 3, StartTime: time.Unix(100, 0), RunDurationMs: &duration, TotalProperties: &total},
		{RunID: 4, StartTime: time.Unix(200, 0)},
	}
	got := ConvertRunRecords(records)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].RunDurationMs)
	assert.Equal(t, int32(1500), *got[0].RunDurationMs)
	assert.Equal(t, int32(12), got[0].TotalProperties)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Equal(t, int32(0), got[1].TotalProperties)
}

func TestConvertScoreRecords(t *testing.T) {
	p := 0.4
	got := ConvertScoreRecords([]schema.ScoreRecord{{RunID: 9, PropertyID: "x", MarketHeat: 55, ModelProbability: &p}})
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].RunID)
	assert.Equal(t, 55.0, got[0].MarketHeat)
	assert.Equal(t, &p, got[0].ModelProbability)
}

func TestConvertScoresAndWriteRows(t *testing.T) {
	scores := []schema.SellerPropensityScore{
		{
			PropertyID: "a",
			Score:      83,
			Confidence: 70,
			Components: map[schema.ComponentKey]schema.ComponentResult{
				schema.OwnerEquityReadiness: {Score: 90},
				schema.MarketHeat:           {Score: 60},
			},
			Model:     &schema.ModelPrediction{Probability: 0.9},
			Drivers:   []string{"High owner equity", "Tight inventory"},
			Geography: schema.GeographyKeys{Zip: "94102"},
			Summary:   schema.PropertySummary{Address: "1 Market St"},
		},
		{PropertyID: "b", Score: 20},
	}

	rows := ConvertScores(scores)
	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), rows[0].Rank)
	assert.Equal(t, "Very Likely", rows[0].Label)
	assert.Equal(t, "High owner equity; Tight inventory", rows[0].Drivers)
	assert.Equal(t, 90.0, rows[0].EquityReadiness)
	assert.Equal(t, 0.0, rows[0].Affordability)
	require.NotNil(t, rows[0].ModelProbability)
	assert.Equal(t, int32(2), rows[1].Rank)
	assert.Nil(t, rows[1].ModelProbability)
	assert.Equal(t, "Unlikely", rows[1].Label)

	var buf bytes.Buffer
	require.NoError(t, WriteScoreRows(&buf, rows))

	reader := parquet.NewGenericReader[ScoreRow](bytes.NewReader(buf.Bytes()))
	defer func() { _ = reader.Close() }()
	assert.Equal(t, int64(2), reader.NumRows())
}
