package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Propensity label constants.
const (
	VeryLikelyValue = "Very Likely" // VeryLikely value
	LikelyValue     = "Likely"      // Likely value
	PossibleValue   = "Possible"    // Possible value
	UnlikelyValue   = "Unlikely"    // Unlikely value
)

// HighPropensityThreshold is the score at which a property counts as a likely seller.
const HighPropensityThreshold = 60.0

// Color variables for console output.
var (
	VeryLikelyColor = color.New(color.FgGreen, color.Bold)  // VeryLikelyColor marks the strongest leads.
	LikelyColor     = color.New(color.FgMagenta, color.Bold) // LikelyColor marks strong leads.
	PossibleColor   = color.New(color.FgYellow)              // PossibleColor marks leads worth watching.
	UnlikelyColor   = color.New(color.FgCyan)                // UnlikelyColor marks low-priority leads.
)

// GetPlainLabel returns a plain text label for a propensity score.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 80:
		return VeryLikelyValue
	case score >= HighPropensityThreshold:
		return LikelyValue
	case score >= 40:
		return PossibleValue
	default:
		return UnlikelyValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(score float64) string {
	text := GetPlainLabel(score)

	switch text {
	case VeryLikelyValue:
		return VeryLikelyColor.Sprint(text)
	case LikelyValue:
		return LikelyColor.Sprint(text)
	case PossibleValue:
		return PossibleColor.Sprint(text)
	default:
		return UnlikelyColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so at least one character of content survives.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// GetCacheDBFilePath returns the path to the SQLite DB file for market cache storage.
func GetCacheDBFilePath() string {
	return homeFile(".propensity_cache.db")
}

// GetRunDBFilePath returns the path to the SQLite DB file for score-run storage.
func GetRunDBFilePath() string {
	return homeFile(".propensity_runs.db")
}

// GetModelDir returns the default directory for persisted models.
func GetModelDir() string {
	return homeFile(filepath.Join(".propensity", "models"))
}

func homeFile(name string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, name)
}
