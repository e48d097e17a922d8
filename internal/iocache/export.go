package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/parquet"
)

// ErrNoRunData is returned when there is nothing to export.
var ErrNoRunData = errors.New("no score run data found to export")

// ExportRuns writes every recorded run and property score to two Parquet files
// next to outputFile and reports progress to w.
func ExportRuns(w io.Writer, store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run tracking is not enabled. Set --run-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return ErrNoRunData
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total score runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total property records: %d\n", status.TableSizes[propertyScoresTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve score runs: %w", err)
	}
	scores, err := store.GetAllScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve property scores: %w", err)
	}

	runsFile := outputFile + ".score_runs.parquet"
	parquetRuns := parquet.ConvertRunRecords(runs)
	if err := parquet.WriteScoreRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write score runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d score runs to: %s\n", len(parquetRuns), runsFile)

	scoresFile := outputFile + ".property_scores.parquet"
	parquetScores := parquet.ConvertScoreRecords(scores)
	if err := parquet.WritePropertyScoresParquet(parquetScores, scoresFile); err != nil {
		return fmt.Errorf("failed to write property scores: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d property score records to: %s\n", len(parquetScores), scoresFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be read with DuckDB, Pandas (via pyarrow) or Spark.")
	return nil
}
