package cmd

import (
	"github.com/huangsam/propensity/core"
	"github.com/spf13/cobra"
)

// modelCmd groups model registry commands.
//
// Model subcommands only need validated config; they never open the cache or run stores.
var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect and maintain trained models",
	Long: `Inspect the trained models stored in --model-dir.

Subcommands:
  status  - Show the latest model and its evaluation
  history - List every trained model
  migrate - Upgrade stored model files to the current format`,
}

var modelStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest trained model and its evaluation",
	Long: `Display the latest model's algorithm, training window, metrics,
cross-validation summary and bias audit.

Examples:
  propensity model status
  propensity model status --detail --output json`,
	PreRunE: configSetupWrapper,
	Run:     runExecutor("model status", core.ExecuteModelStatus),
}

var modelHistoryCmd = &cobra.Command{
	Use:     "history",
	Short:   "List all trained models",
	PreRunE: configSetupWrapper,
	Run:     runExecutor("model history", core.ExecuteModelHistory),
}

var modelMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite older model files in the current format",
	Long: `Upgrade model files written by older versions so they load with the current schema.

Examples:
  propensity model migrate --model-dir ./models`,
	PreRunE: configSetupWrapper,
	Run:     runExecutor("model migrate", core.ExecuteModelMigrate),
}
