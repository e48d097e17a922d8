package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
)

// componentPurposes are the one-line descriptions of each component.
var componentPurposes = map[schema.ComponentKey]string{
	schema.OwnerEquityReadiness:  "Owner can sell - equity, tenure and listing readiness",
	schema.MarketHeat:            "Market rewards selling - fast, tight, competitive",
	schema.AffordabilityPressure: "Local cost pressure pushing owners to move",
	schema.MacroEconomicMomentum: "Rates, jobs and confidence across the economy",
}

// getDisplayNameForComponent returns the display name with emoji for a component.
func getDisplayNameForComponent(key schema.ComponentKey) string {
	switch key {
	case schema.OwnerEquityReadiness:
		return "🏠 EQUITY READINESS"
	case schema.MarketHeat:
		return "🔥 MARKET HEAT"
	case schema.AffordabilityPressure:
		return "💸 AFFORDABILITY PRESSURE"
	case schema.MacroEconomicMomentum:
		return "📈 MACRO MOMENTUM"
	default:
		return strings.ToUpper(string(key))
	}
}

// formatMetricWeights formats sub-metric weights for display in formulas, heaviest first.
func formatMetricWeights(weights map[schema.MetricKey]float64) string {
	keys := make([]schema.MetricKey, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b schema.MetricKey) int {
		if weights[a] != weights[b] {
			if weights[a] > weights[b] {
				return -1
			}
			return 1
		}
		return strings.Compare(string(a), string(b))
	})
	var parts []string
	for _, k := range keys {
		if weights[k] > 0 {
			parts = append(parts, fmt.Sprintf("%.2f*%s", weights[k], k))
		}
	}
	return strings.Join(parts, "+")
}

// WriteWeightDefinitions displays the component weights, sub-metric weights and blend formula.
// This is a static display that does not require any input data.
func WriteWeightDefinitions(weights map[schema.ComponentKey]float64, modelWeight float64, cfg *contract.Config) error {
	renderModel := buildWeightsRenderModel(weights, modelWeight)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, renderModel)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeWeightsCSV(w, renderModel)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only supported for property scores")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeWeightsText(w, renderModel)
		}, "Wrote text")
	}
}

// buildWeightsRenderModel constructs the render model, filling gaps from defaults.
func buildWeightsRenderModel(weights map[schema.ComponentKey]float64, modelWeight float64) *schema.WeightsRenderModel {
	active := schema.GetDefaultComponentWeights()
	for k, v := range weights {
		active[k] = v
	}

	components := make([]schema.ComponentRender, 0, len(schema.AllComponents))
	var heuristic []string
	for _, key := range schema.AllComponents {
		metrics := schema.GetDefaultMetricWeights(key)
		components = append(components, schema.ComponentRender{
			Key:     key,
			Purpose: componentPurposes[key],
			Weight:  active[key],
			Metrics: metrics,
			Formula: formatMetricWeights(metrics),
		})
		heuristic = append(heuristic, fmt.Sprintf("%.2f*%s", active[key], key))
	}

	return &schema.WeightsRenderModel{
		Title:        "Seller Propensity Scoring",
		Description:  "Heuristic score = weighted sum of 0-100 component scores",
		Components:   components,
		Heuristic:    strings.Join(heuristic, "+"),
		ModelWeight:  modelWeight,
		BlendFormula: fmt.Sprintf("%.2f*heuristic + %.2f*model_probability*100", 1-modelWeight, modelWeight),
	}
}

// writeWeightsText displays weights in human-readable text format.
func writeWeightsText(w io.Writer, m *schema.WeightsRenderModel) error {
	lines := []string{
		"🏡 " + m.Title,
		strings.Repeat("=", len(m.Title)+3),
		"",
		m.Description,
		"",
	}
	for _, c := range m.Components {
		lines = append(lines,
			fmt.Sprintf("%s (weight %.2f): %s", getDisplayNameForComponent(c.Key), c.Weight, c.Purpose),
			fmt.Sprintf("   Formula: Score = %s", c.Formula),
			"",
		)
	}
	lines = append(lines,
		"🧮 Heuristic",
		"   Score = "+m.Heuristic,
		"",
		"🤖 Model Blend",
		"   Final = "+m.BlendFormula,
		"   (heuristic only when no model is loaded)",
	)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// writeWeightsCSV writes one row per component sub-metric.
func writeWeightsCSV(w io.Writer, m *schema.WeightsRenderModel) error {
	header := []string{"component", "component_weight", "metric", "metric_weight"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, c := range m.Components {
			keys := make([]string, 0, len(c.Metrics))
			for k := range c.Metrics {
				keys = append(keys, string(k))
			}
			slices.Sort(keys)
			for _, k := range keys {
				rec := []string{
					string(c.Key),
					fmt.Sprintf("%.2f", c.Weight),
					k,
					fmt.Sprintf("%.2f", c.Metrics[schema.MetricKey(k)]),
				}
				if err := csvWriter.Write(rec); err != nil {
					return fmt.Errorf("error writing CSV record: %w", err)
				}
			}
		}
		return csvWriter.Write([]string{"model_blend", fmt.Sprintf("%.2f", m.ModelWeight), "model_probability", "1.00"})
	})
}
