package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/parquet"
	"github.com/huangsam/propensity/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// scoresJSON is the JSON payload for a scoring batch.
type scoresJSON struct {
	Summary       schema.ScoreSummary            `json:"summary"`
	ModelMetadata *schema.ModelMetadata          `json:"model_metadata,omitempty"`
	Scores        []schema.SellerPropensityScore `json:"scores"`
}

// WriteScoreResults outputs property scores, dispatching based on the output format configured.
func WriteScoreResults(result *schema.ScoreAndRankResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, scoresJSON{Summary: result.Summary, ModelMetadata: result.ModelMetadata, Scores: result.Scores})
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoresCSV(w, result.Scores, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteScoreRows(w, parquet.ConvertScores(result.Scores))
		}, "Wrote Parquet"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoresTable(result, cfg, fmtFloat, intFmt, duration, w)
		}, "Wrote table")
	}
	return nil
}

// writeScoresTable generates and writes the human-readable score table.
func writeScoresTable(result *schema.ScoreAndRankResult, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration, writer io.Writer) error {
	table := tablewriter.NewWriter(writer)

	headers := []string{"Rank", "Property", "Location", "Score", "Conf", "Label"}
	if cfg.Detail {
		headers = append(headers, "Equity", "Heat", "Afford", "Macro", "Model", "Drivers")
	}
	table.Header(headers)

	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	maxWidth := getMaxTableAddressWidth(cfg)
	var data [][]string
	for i, s := range result.Scores {
		label := scoreLabel(s.Score, cfg.UseColors)
		row := []string{
			strconv.Itoa(i + 1),
			s.PropertyID,
			contract.TruncateText(formatAddress(s), maxWidth),
			fmtFloat(s.Score),
			fmtFloat(s.Confidence),
			label,
		}
		if cfg.Detail {
			row = append(
				row,
				fmtFloat(s.Components[schema.OwnerEquityReadiness].Score),
				fmtFloat(s.Components[schema.MarketHeat].Score),
				fmtFloat(s.Components[schema.AffordabilityPressure].Score),
				fmtFloat(s.Components[schema.MacroEconomicMomentum].Score),
				formatModelProbability(s.Model, fmtFloat),
				formatTopDrivers(s.Drivers, 2),
			)
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	sum := result.Summary
	if _, err := fmt.Fprintf(writer, "Showing top "+intFmt+" of "+intFmt+" properties (avg score: %s, median: %s, high propensity: "+intFmt+")\n",
		sum.ReturnedProperties, sum.TotalProperties, fmtFloat(sum.AverageScore), fmtFloat(sum.MedianScore), sum.HighPropensityCount); err != nil {
		return err
	}
	if result.ModelMetadata != nil {
		if _, err := fmt.Fprintf(writer, "Model %s (%s) blended into "+intFmt+" scores at weight %s\n",
			result.ModelMetadata.ID, result.ModelMetadata.Algorithm, sum.ModelScoredCount, fmtFloat(cfg.ModelWeight)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(writer, "Scoring completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeScoresCSV writes property scores in CSV format.
func writeScoresCSV(w io.Writer, scores []schema.SellerPropensityScore, fmtFloat func(float64) string) error {
	header := []string{
		"rank",
		"property_id",
		"address",
		"state",
		"region",
		"zip",
		"score",
		"confidence",
		"label",
		"heuristic_score",
		"owner_equity_readiness",
		"market_heat",
		"affordability_pressure",
		"macro_economic_momentum",
		"model_probability",
		"drivers",
		"risks",
	}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for i, s := range scores {
			modelProb := ""
			if s.Model != nil {
				modelProb = fmtFloat(s.Model.Probability)
			}
			rec := []string{
				strconv.Itoa(i + 1),
				s.PropertyID,
				s.Summary.Address,
				s.Geography.State,
				s.Geography.Region,
				s.Geography.Zip,
				fmtFloat(s.Score),
				fmtFloat(s.Confidence),
				contract.GetPlainLabel(s.Score),
				fmtFloat(s.HeuristicScore),
				fmtFloat(s.Components[schema.OwnerEquityReadiness].Score),
				fmtFloat(s.Components[schema.MarketHeat].Score),
				fmtFloat(s.Components[schema.AffordabilityPressure].Score),
				fmtFloat(s.Components[schema.MacroEconomicMomentum].Score),
				modelProb,
				strings.Join(s.Drivers, "; "),
				strings.Join(s.Risks, "; "),
			}
			if err := csvWriter.Write(rec); err != nil {
				return fmt.Errorf("error writing CSV record: %w", err)
			}
		}
		return nil
	})
}

// formatAddress returns the street address with its location, or just the location.
func formatAddress(s schema.SellerPropensityScore) string {
	loc := schema.FormatLocation(s)
	if s.Summary.Address == "" {
		return loc
	}
	if loc == "" {
		return s.Summary.Address
	}
	return s.Summary.Address + ", " + loc
}

// formatModelProbability renders the model probability or a dash when no model contributed.
func formatModelProbability(m *schema.ModelPrediction, fmtFloat func(float64) string) string {
	if m == nil {
		return "-"
	}
	return fmtFloat(m.Probability)
}

// formatTopDrivers joins the first n drivers.
func formatTopDrivers(drivers []string, n int) string {
	if len(drivers) > n {
		drivers = drivers[:n]
	}
	return strings.Join(drivers, "; ")
}
