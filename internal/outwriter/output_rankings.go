package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// rankingsJSON is the JSON payload for geography leaderboards.
type rankingsJSON struct {
	Summary  schema.ScoreSummary                           `json:"summary"`
	Rankings map[schema.GeoLevel][]schema.GeographyRanking `json:"rankings"`
}

// WriteRankingResults outputs geography leaderboards, dispatching based on the output format configured.
func WriteRankingResults(result *schema.ScoreAndRankResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)
	levels := rankingLevels(result, cfg)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, rankingsJSON{Summary: result.Summary, Rankings: result.Rankings})
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRankingsCSV(w, result, levels, fmtFloat, intFmt)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only supported for property scores")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRankingsTable(result, levels, cfg, fmtFloat, intFmt, duration, w)
		}, "Wrote table")
	}
	return nil
}

// rankingLevels returns the configured levels that have rankings, in configured order.
func rankingLevels(result *schema.ScoreAndRankResult, cfg *contract.Config) []schema.GeoLevel {
	levels := cfg.GeoLevels
	if len(levels) == 0 {
		levels = schema.AllGeoLevels
	}
	var out []schema.GeoLevel
	for _, level := range levels {
		if _, ok := result.Rankings[level]; ok {
			out = append(out, level)
		}
	}
	return out
}

// writeRankingsTable writes one leaderboard table per geography level.
func writeRankingsTable(result *schema.ScoreAndRankResult, levels []schema.GeoLevel, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration, writer io.Writer) error {
	maxWidth := getMaxTableAddressWidth(cfg)
	for _, level := range levels {
		if _, err := fmt.Fprintf(writer, "🏘️  Top %s geographies\n", level); err != nil {
			return err
		}
		table := tablewriter.NewWriter(writer)
		headers := []string{"Rank", "Geography", "Props", "Mean", "Median", "Conf", "Label"}
		if cfg.Detail {
			headers = append(headers, "Min", "Max", "Top Properties")
		}
		table.Header(headers)
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})

		var data [][]string
		for i, r := range result.Rankings[level] {
			label := scoreLabel(r.MeanScore, cfg.UseColors)
			row := []string{
				strconv.Itoa(i + 1),
				contract.TruncateText(r.Key, maxWidth),
				fmt.Sprintf(intFmt, r.SampleSize),
				fmtFloat(r.MeanScore),
				fmtFloat(r.MedianScore),
				fmtFloat(r.MeanConfidence),
				label,
			}
			if cfg.Detail {
				row = append(row, fmtFloat(r.MinScore), fmtFloat(r.MaxScore), formatTopProperties(r.TopProperties, 3))
			}
			data = append(data, row)
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(writer, "Ranked "+intFmt+" properties across %d levels (avg score: %s)\n",
		result.Summary.TotalProperties, len(levels), fmtFloat(result.Summary.AverageScore)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Ranking completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeRankingsCSV writes all leaderboards into one CSV keyed by level.
func writeRankingsCSV(w io.Writer, result *schema.ScoreAndRankResult, levels []schema.GeoLevel, fmtFloat func(float64) string, intFmt string) error {
	header := []string{
		"level",
		"rank",
		"geography",
		"sample_size",
		"mean_score",
		"median_score",
		"mean_confidence",
		"min_score",
		"max_score",
		"label",
		"top_properties",
	}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, level := range levels {
			for i, r := range result.Rankings[level] {
				rec := []string{
					string(level),
					strconv.Itoa(i + 1),
					r.Key,
					fmt.Sprintf(intFmt, r.SampleSize),
					fmtFloat(r.MeanScore),
					fmtFloat(r.MedianScore),
					fmtFloat(r.MeanConfidence),
					fmtFloat(r.MinScore),
					fmtFloat(r.MaxScore),
					contract.GetPlainLabel(r.MeanScore),
					formatTopProperties(r.TopProperties, len(r.TopProperties)),
				}
				if err := csvWriter.Write(rec); err != nil {
					return fmt.Errorf("error writing CSV record: %w", err)
				}
			}
		}
		return nil
	})
}

// formatTopProperties joins the ids of the first n properties.
func formatTopProperties(props []schema.RankedProperty, n int) string {
	if len(props) > n {
		props = props[:n]
	}
	ids := make([]string, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.PropertyID)
	}
	return strings.Join(ids, ", ")
}
