package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *schema.ScoreAndRankResult {
	scoredAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	scores := []schema.SellerPropensityScore{
		{
			PropertyID:     "p-1",
			Score:          82.4,
			Confidence:     0.9,
			HeuristicScore: 78.0,
			Components: map[schema.ComponentKey]schema.ComponentResult{
				schema.OwnerEquityReadiness:  {Score: 90},
				schema.MarketHeat:            {Score: 70},
				schema.AffordabilityPressure: {Score: 60},
				schema.MacroEconomicMomentum: {Score: 50},
			},
			Model:     &schema.ModelPrediction{ModelID: "m-1", Algorithm: schema.LogisticRegression, Probability: 0.88},
			Drivers:   []string{"High equity", "Long tenure", "Hot market"},
			Risks:     []string{"Rising rates"},
			Geography: schema.GeographyKeys{State: "TX", Region: "Austin, TX", Zip: "78701"},
			Summary:   schema.PropertySummary{Address: "1 Main St", City: "Austin", State: "TX", Zip: "78701"},
			ScoredAt:  scoredAt,
		},
		{
			PropertyID:     "p-2",
			Score:          35.0,
			Confidence:     0.5,
			HeuristicScore: 35.0,
			Components:     map[schema.ComponentKey]schema.ComponentResult{},
			Geography:      schema.GeographyKeys{State: "TX", Zip: "78702"},
			ScoredAt:       scoredAt,
		},
	}
	return &schema.ScoreAndRankResult{
		Scores: scores,
		Rankings: map[schema.GeoLevel][]schema.GeographyRanking{
			schema.StateLevel: {
				{Level: schema.StateLevel, Key: "TX", SampleSize: 2, MeanScore: 58.7, MedianScore: 58.7, MeanConfidence: 0.7, MinScore: 35, MaxScore: 82.4,
					TopProperties: []schema.RankedProperty{{PropertyID: "p-1", Score: 82.4}, {PropertyID: "p-2", Score: 35}}},
			},
			schema.ZipLevel: {
				{Level: schema.ZipLevel, Key: "78701", SampleSize: 1, MeanScore: 82.4, MedianScore: 82.4, MinScore: 82.4, MaxScore: 82.4,
					TopProperties: []schema.RankedProperty{{PropertyID: "p-1", Score: 82.4}}},
			},
		},
		Summary: schema.ScoreSummary{
			TotalProperties:     2,
			ReturnedProperties:  2,
			AverageScore:        58.7,
			MedianScore:         58.7,
			AverageConfidence:   0.7,
			HighPropensityCount: 1,
			ModelScoredCount:    1,
		},
		ModelMetadata: &schema.ModelMetadata{ID: "m-1", Algorithm: schema.LogisticRegression},
	}
}

func sampleModel() *schema.SellerModelWeights {
	return &schema.SellerModelWeights{
		SchemaVersion:   2,
		ID:              "model-20250301",
		Algorithm:       schema.LogisticRegression,
		FeatureNames:    []string{"a", "b"},
		TrainedAt:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		TrainingSize:    80,
		ValidationSize:  20,
		Metrics:         schema.ModelMetrics{AUC: 0.81, Accuracy: 0.75},
		TrainingMetrics: &schema.ModelMetrics{AUC: 0.9, Accuracy: 0.8},
		Evaluation: &schema.ModelEvaluation{
			CrossValidation: &schema.CrossValidationResult{
				Folds:   2,
				Results: []schema.FoldResult{{Fold: 1, TrainSize: 50, ValidationSize: 50}, {Fold: 2, TrainSize: 50, ValidationSize: 50}},
				Mean:    schema.ModelMetrics{AUC: 0.79, Accuracy: 0.74},
			},
			BiasAudit: &schema.BiasAuditResult{
				GlobalMean: 0.4,
				Groups:     []schema.BiasGroup{{Attribute: schema.AuditOwnerType, Group: "individual", Count: 60, MeanProbability: 0.42, Lift: 1.05}},
			},
		},
	}
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestWriteScoresTable(t *testing.T) {
	fmtFloat, intFmt := createFormatters(1)
	cfg := &contract.Config{Precision: 1, Width: 200, Workers: 4, CacheBackend: schema.NoneBackend, ModelWeight: 0.4}

	var buf bytes.Buffer
	err := writeScoresTable(sampleResult(), cfg, fmtFloat, intFmt, time.Second, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "p-1")
	assert.Contains(t, out, "1 Main St, Austin, TX 78701")
	assert.Contains(t, out, "82.4")
	assert.Contains(t, out, contract.VeryLikelyValue)
	assert.Contains(t, out, "Showing top 2 of 2 properties")
	assert.Contains(t, out, "Model m-1 (logistic-regression) blended into 1 scores at weight 0.4")
	assert.NotContains(t, out, "Drivers")
}

func TestWriteScoresTableDetail(t *testing.T) {
	fmtFloat, intFmt := createFormatters(2)
	cfg := &contract.Config{Precision: 2, Width: 300, Detail: true}

	var buf bytes.Buffer
	err := writeScoresTable(sampleResult(), cfg, fmtFloat, intFmt, time.Second, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "High equity; Long tenure")
	assert.NotContains(t, out, "Hot market")
	assert.Contains(t, out, "0.88")
}

func TestWriteScoresCSV(t *testing.T) {
	fmtFloat, _ := createFormatters(2)

	var buf bytes.Buffer
	require.NoError(t, writeScoresCSV(&buf, sampleResult().Scores, fmtFloat))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows

	assert.Equal(t, "rank", records[0][0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "p-1", records[1][1])
	assert.Equal(t, "82.40", records[1][6])
	assert.Equal(t, contract.VeryLikelyValue, records[1][8])
	assert.Equal(t, "0.88", records[1][14])
	assert.Equal(t, "High equity; Long tenure; Hot market", records[1][15])
	assert.Equal(t, "", records[2][14]) // no model
	assert.Equal(t, contract.UnlikelyValue, records[2][8])
}

func TestWriteScoreResultsFormats(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "scores.json")
		cfg := &contract.Config{Output: schema.JSONOut, OutputFile: path, Precision: 1}
		require.NoError(t, WriteScoreResults(sampleResult(), cfg, time.Second))

		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(readOutput(t, path)), &payload))
		assert.Contains(t, payload, "summary")
		assert.Contains(t, payload, "model_metadata")
		assert.Len(t, payload["scores"], 2)
	})

	t.Run("parquet", func(t *testing.T) {
		path := filepath.Join(dir, "scores.parquet")
		cfg := &contract.Config{Output: schema.ParquetOut, OutputFile: path}
		require.NoError(t, WriteScoreResults(sampleResult(), cfg, time.Second))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("table", func(t *testing.T) {
		path := filepath.Join(dir, "scores.txt")
		cfg := &contract.Config{Output: schema.TextOut, OutputFile: path, Width: 200}
		require.NoError(t, WriteScoreResults(sampleResult(), cfg, time.Second))
		assert.Contains(t, readOutput(t, path), "Scoring completed")
	})

	t.Run("bad path", func(t *testing.T) {
		cfg := &contract.Config{Output: schema.CSVOut, OutputFile: filepath.Join(dir, "missing", "x.csv")}
		assert.Error(t, WriteScoreResults(sampleResult(), cfg, time.Second))
	})
}

func TestWriteRankings(t *testing.T) {
	fmtFloat, intFmt := createFormatters(1)
	result := sampleResult()

	t.Run("levels follow config order", func(t *testing.T) {
		cfg := &contract.Config{GeoLevels: []schema.GeoLevel{schema.ZipLevel, schema.RegionLevel, schema.StateLevel}}
		assert.Equal(t, []schema.GeoLevel{schema.ZipLevel, schema.StateLevel}, rankingLevels(result, cfg))
	})

	t.Run("table", func(t *testing.T) {
		cfg := &contract.Config{Width: 200, Detail: true}
		var buf bytes.Buffer
		levels := rankingLevels(result, cfg)
		require.NoError(t, writeRankingsTable(result, levels, cfg, fmtFloat, intFmt, time.Second, &buf))
		out := buf.String()
		assert.Contains(t, out, "Top state geographies")
		assert.Contains(t, out, "Top zip geographies")
		assert.Contains(t, out, "p-1, p-2")
		assert.Contains(t, out, "Ranked 2 properties across 2 levels")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		levels := []schema.GeoLevel{schema.StateLevel, schema.ZipLevel}
		require.NoError(t, writeRankingsCSV(&buf, result, levels, fmtFloat, intFmt))
		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, []string{"state", "1", "TX", "2", "58.7", "58.7", "0.7", "35.0", "82.4", contract.PossibleValue, "p-1, p-2"}, records[1])
		assert.Equal(t, "zip", records[2][0])
	})

	t.Run("parquet unsupported", func(t *testing.T) {
		cfg := &contract.Config{Output: schema.ParquetOut}
		assert.Error(t, WriteRankingResults(result, cfg, time.Second))
	})
}

func TestBuildWeightsRenderModel(t *testing.T) {
	custom := map[schema.ComponentKey]float64{schema.MarketHeat: 0.40}
	m := buildWeightsRenderModel(custom, 0.25)

	require.Len(t, m.Components, len(schema.AllComponents))
	assert.Equal(t, schema.OwnerEquityReadiness, m.Components[0].Key)
	assert.InDelta(t, 0.35, m.Components[0].Weight, 1e-9)
	assert.InDelta(t, 0.40, m.Components[1].Weight, 1e-9)
	assert.True(t, strings.HasPrefix(m.Components[0].Formula, "0.35*equity_ratio+0.30*tenure"))
	assert.Contains(t, m.Heuristic, "0.40*market_heat")
	assert.Equal(t, "0.75*heuristic + 0.25*model_probability*100", m.BlendFormula)
}

func TestWriteWeights(t *testing.T) {
	m := buildWeightsRenderModel(nil, contract.DefaultModelWeight)

	var text bytes.Buffer
	require.NoError(t, writeWeightsText(&text, m))
	assert.Contains(t, text.String(), "MARKET HEAT (weight 0.25)")
	assert.Contains(t, text.String(), "Final = 0.60*heuristic + 0.40*model_probability*100")

	var buf bytes.Buffer
	require.NoError(t, writeWeightsCSV(&buf, m))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	// header + 20 sub-metrics + blend row
	assert.Len(t, records, 22)
	assert.Equal(t, "model_blend", records[len(records)-1][0])
}

func TestFormatMetricWeights(t *testing.T) {
	got := formatMetricWeights(map[schema.MetricKey]float64{"b": 0.2, "a": 0.2, "c": 0.6, "d": 0})
	assert.Equal(t, "0.60*c+0.20*a+0.20*b", got)
}

func TestWriteModelText(t *testing.T) {
	fmtMetric, _ := createFormatters(3)
	var buf bytes.Buffer
	cfg := &contract.Config{Detail: true}
	require.NoError(t, writeModelText(&buf, sampleModel(), cfg, fmtMetric))

	out := buf.String()
	assert.Contains(t, out, "Model model-20250301")
	assert.Contains(t, out, "80 training, 20 validation, 2 features")
	assert.Contains(t, out, "0.810")
	assert.Contains(t, out, "2-fold cross-validation: mean AUC 0.790")
	assert.Contains(t, out, "Bias audit (global mean probability 0.400)")
	assert.Contains(t, out, "individual")
}

func TestWriteModelCSV(t *testing.T) {
	fmtMetric, _ := createFormatters(3)
	var buf bytes.Buffer
	require.NoError(t, writeModelCSV(&buf, sampleModel(), fmtMetric))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"section", "name", "value"}, records[0])
	assert.Contains(t, records, []string{"validation", "auc", "0.810"})
	assert.Contains(t, records, []string{"training", "auc", "0.900"})
	assert.Contains(t, records, []string{"cross_validation", "auc", "0.790"})
	assert.Contains(t, records, []string{"bias_lift", "owner_type=individual", "1.050"})
}

func TestWriteModelStatusNil(t *testing.T) {
	assert.Error(t, WriteModelStatus(nil, &contract.Config{}))
}

func TestWriteModelHistory(t *testing.T) {
	dir := t.TempDir()
	entries := []schema.ModelHistoryEntry{
		{ID: "m-2", Algorithm: schema.GradientBoosting, TrainedAt: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), SchemaVersion: 2, Path: "/models/m-2.json", TrainingSize: 100, AUC: 0.8123, Accuracy: 0.7},
	}

	path := filepath.Join(dir, "history.csv")
	require.NoError(t, WriteModelHistory(entries, &contract.Config{Output: schema.CSVOut, OutputFile: path}))
	records, err := csv.NewReader(strings.NewReader(readOutput(t, path))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "m-2", records[1][0])
	assert.Equal(t, "0.812", records[1][5])

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, WriteModelHistory(nil, &contract.Config{OutputFile: empty}))
	assert.Contains(t, readOutput(t, empty), "No trained models found")

	jsonPath := filepath.Join(dir, "empty.json")
	require.NoError(t, WriteModelHistory(nil, &contract.Config{Output: schema.JSONOut, OutputFile: jsonPath}))
	assert.Equal(t, "[]\n", readOutput(t, jsonPath))
}

func TestGetMaxTableAddressWidth(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *contract.Config
		expect int
	}{
		{"narrow clamps to min", &contract.Config{Width: 40}, 15},
		{"wide clamps to max", &contract.Config{Width: 400}, 60},
		{"in range", &contract.Config{Width: 100}, 35},
		{"detail narrows", &contract.Config{Width: 160, Detail: true}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, getMaxTableAddressWidth(tt.cfg))
		})
	}
}

func TestHelpers(t *testing.T) {
	fmtFloat, intFmt := createFormatters(2)
	assert.Equal(t, "3.14", fmtFloat(3.14159))
	assert.Equal(t, "%d", intFmt)

	assert.Equal(t, "1 Main St, Austin, TX 78701", formatAddress(sampleResult().Scores[0]))
	assert.Equal(t, "78702", formatAddress(sampleResult().Scores[1]))
	assert.Equal(t, "-", formatModelProbability(nil, fmtFloat))
	assert.Equal(t, "a; b", formatTopDrivers([]string{"a", "b", "c"}, 2))
	assert.Equal(t, "", formatTopDrivers(nil, 2))

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestScoreLabel(t *testing.T) {
	assert.Equal(t, contract.VeryLikelyValue, scoreLabel(91, false))
	assert.Equal(t, contract.UnlikelyValue, scoreLabel(12, false))
	assert.Contains(t, scoreLabel(91, true), contract.VeryLikelyValue)
}
