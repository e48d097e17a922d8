// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the commands.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteScores prints ranked property scores using the configured output format.
func (ow *OutWriter) WriteScores(result *schema.ScoreAndRankResult, cfg *contract.Config, duration time.Duration) error {
	return WriteScoreResults(result, cfg, duration)
}

// WriteRankings prints geography leaderboards using the configured output format.
func (ow *OutWriter) WriteRankings(result *schema.ScoreAndRankResult, cfg *contract.Config, duration time.Duration) error {
	return WriteRankingResults(result, cfg, duration)
}

// WriteWeights prints the scoring weights using the configured output format.
func (ow *OutWriter) WriteWeights(weights map[schema.ComponentKey]float64, modelWeight float64, cfg *contract.Config) error {
	return WriteWeightDefinitions(weights, modelWeight, cfg)
}

// WriteModel prints a trained model summary using the configured output format.
func (ow *OutWriter) WriteModel(model *schema.SellerModelWeights, cfg *contract.Config) error {
	return WriteModelStatus(model, cfg)
}

// WriteHistory prints the persisted model history using the configured output format.
func (ow *OutWriter) WriteHistory(entries []schema.ModelHistoryEntry, cfg *contract.Config) error {
	return WriteModelHistory(entries, cfg)
}

// getMaxTableAddressWidth calculates the maximum width for the location column in
// table output based on terminal width and table configuration.
func getMaxTableAddressWidth(cfg *contract.Config) int {
	termWidth := cfg.Width
	if termWidth <= 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Rank + Property + Score + Confidence + Label with borders/padding
	baseWidth := 45
	if cfg.Detail {
		baseWidth += 75 // Component, model and driver columns
	}
	baseWidth += 20 // Table borders and separators

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 60 {
		return 60
	}
	return available
}
