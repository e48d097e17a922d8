// Package cmd defines the command-line interface for propensity.
package cmd

import (
	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(weightsCmd)
	rootCmd.AddCommand(modelCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	modelCmd.AddCommand(modelStatusCmd)
	modelCmd.AddCommand(modelHistoryCmd)
	modelCmd.AddCommand(modelMigrateCmd)

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cachePruneCmd)

	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	pf := rootCmd.PersistentFlags()
	pf.StringP("input", "i", "", "Path to a JSON or YAML file of properties (\"-\" reads JSON from stdin)")
	pf.String("market-data", "", "Path to a JSON market snapshot keyed by state, region and zip")
	pf.String("model-dir", "", "Directory holding trained model files (default ~/.propensity/models)")
	pf.String("as-of", "", "Score as of this date (YYYY-MM-DD or RFC 3339, default now)")
	pf.IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	pf.String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	pf.String("output-file", "", "Optional path to write output to")
	pf.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	pf.Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	pf.Int("width", 0, "Terminal width override (0 = auto-detect)")
	pf.Bool("detail", false, "Print per-component scores and drivers")
	pf.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	pf.String("levels", "", "Comma-separated geography levels to rank: state,region,zip,county,neighborhood (default all)")
	pf.Int("top", contract.DefaultTopN, "Number of top properties to list per geography")
	pf.Bool("no-model", false, "Ignore any trained model and score with heuristics only")
	pf.Float64("model-weight", contract.DefaultModelWeight, "Blend weight of the model probability in the final score")
	pf.String("cache-backend", string(schema.SQLiteBackend), "Market cache backend: sqlite or mysql or postgresql or redis or none")
	pf.String("cache-db-connect", "", "Connection string for the market cache (mysql/postgresql DSN or redis URL)")
	pf.String("cache-ttl", contract.DefaultCacheTTL.String(), "How long cached market data stays fresh")
	pf.String("run-backend", "", "Score run tracking backend: sqlite or mysql or postgresql or none")
	pf.String("run-db-connect", "", "Connection string for run tracking (must differ from cache-db-connect)")
	pf.String("log-level", "info", "Log level: debug or info or warn or error")
	pf.String("log-format", "console", "Log format: console or json")
	pf.String("metrics-textfile", "", "Write Prometheus metrics to this file after each run")
	pf.String("profile", "", "Enable profiling and write profiles to files with this prefix")
	pf.String("config", "", "Path to config file")
	if err := viper.BindPFlags(pf); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of trainCmd to Viper
	trainCmd.Flags().String("algorithm", string(schema.LogisticRegression), "Training algorithm: logistic-regression or gradient-boosting")
	trainCmd.Flags().Int("folds", 5, "Number of cross-validation folds")
	trainCmd.Flags().Uint64("seed", 42, "Random seed for fold assignment and sampling")
	trainCmd.Flags().Bool("skip-evaluation", false, "Skip cross-validation and the bias audit")
	if err := viper.BindPFlags(trainCmd.Flags()); err != nil {
		contract.LogFatal("Error binding train flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
