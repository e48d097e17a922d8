package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/iocache"
	"github.com/huangsam/propensity/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runBackendFromViper reads the run backend settings, treating an empty backend as none.
func runBackendFromViper() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	if err := contract.InitLogger(viper.GetString("log-level"), viper.GetString("log-format")); err != nil {
		return "", "", err
	}

	backend := schema.DatabaseBackend(viper.GetString("run-backend"))
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString("run-db-connect")

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// runsSetup loads minimal configuration needed for run store operations.
func runsSetup() error {
	backend, connStr, err := runBackendFromViper()
	if err != nil {
		return err
	}

	// No market cache for runs commands
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}

	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsMigrateSetup resolves the run backend without opening the store,
// so migrations can run on a fresh database.
func runsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := runBackendFromViper()
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = iocache.GetRunDBFilePath()
	}
	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	return nil
}

// runsCmd focused on score run history.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the history of score runs",
	Long: `Manage the recorded history of score and rank runs.

When --run-backend is set, every run stores its configuration, timing and
the score of each property, which enables trend tracking and export.

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show run tracking statistics
  export  - Export runs and scores to Parquet
  clear   - Remove all run data
  migrate - Run database schema migrations`,
}

var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs and property scores",
	Long: `Delete every recorded run and property score.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  propensity runs export --run-backend sqlite --output-file backup
  propensity runs clear --run-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearRuns(cfg.RunBackend, iocache.GetRunDBFilePath(), cfg.RunDBConnect); err != nil {
			contract.LogFatal("Failed to clear run data", err)
		}
		fmt.Println("Run data cleared successfully.")
	},
}

var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run tracking statistics and connection details",
	Long: `Show the backend, run count, run time range and table sizes of the run store.

Examples:
  propensity runs status --run-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetRunStore()
		if store == nil {
			contract.LogFatal("Failed to get run status", errors.New("run tracking is not enabled. Set --run-backend"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		iocache.PrintRunStatus(os.Stdout, status)
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs and property scores to Parquet",
	Long: `Export every recorded run and property score to two Parquet files:
<output-file>.score_runs.parquet and <output-file>.property_scores.parquet.

Requires: --output-file parameter

Examples:
  propensity runs export --run-backend sqlite --output-file history
  duckdb -c "SELECT * FROM read_parquet('history.property_scores.parquet') LIMIT 10"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		err := iocache.ExportRuns(os.Stdout, iocache.Manager.GetRunStore(), cfg.OutputFile)
		if errors.Is(err, iocache.ErrNoRunData) {
			fmt.Println("No score run data to export.")
			return
		}
		if err != nil {
			contract.LogFatal("Failed to export run data", err)
		}
	},
}

var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions for the run store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  propensity runs migrate --run-backend postgresql --run-db-connect "$DSN"

  # Roll back to the initial state
  propensity runs migrate --run-backend sqlite --target-version 0`,
	PreRunE: runsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateRuns(os.Stdout, cfg.RunBackend, cfg.RunDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
