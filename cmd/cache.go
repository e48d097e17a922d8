package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/iocache"
	"github.com/huangsam/propensity/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := contract.InitLogger(viper.GetString("log-level"), viper.GetString("log-format")); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// No run tracking for cache commands
	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	cfg.CacheTTL = contract.DefaultCacheTTL
	if raw := viper.GetString("cache-ttl"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("invalid cache-ttl '%s'", raw)
		}
		cfg.CacheTTL = ttl
	}

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on market cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the market data cache",
	Long: `Manage the cache of per-location market signals.

Market snapshots are resolved once per state, region and zip and cached for
--cache-ttl so repeated runs skip the lookup.

Supported backends: SQLite (default), MySQL, PostgreSQL, Redis, or None

Subcommands:
  status - Show cache statistics and connection info
  prune  - Drop snapshots older than --cache-ttl
  clear  - Remove all cached data

Examples:
  propensity cache status
  propensity cache prune --cache-ttl 6h
  propensity cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached market data",
	Long: `Delete all cached market data from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table
For Redis: Deletes every cache key

Examples:
  # Clear SQLite cache (default)
  propensity cache clear

  # Clear a Redis cache
  PROPENSITY_CACHE_BACKEND=redis PROPENSITY_CACHE_DB_CONNECT="redis://localhost:6379/0" propensity cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearCache(cfg.CacheBackend, iocache.GetDBFilePath(), cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show the backend, entry count, entry age range and size of the market cache.

Examples:
  propensity cache status`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetMarketStore()
		if store == nil {
			contract.LogFatal("Failed to get cache status", fmt.Errorf("cache backend %q is not enabled", cfg.CacheBackend))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}

// cachePruneCmd drops expired market snapshots without touching fresh ones.
var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove market snapshots older than the cache TTL",
	Long: `Delete cached market snapshots written more than --cache-ttl ago.

Fresh entries are kept, so the next run still skips their lookup.

Examples:
  propensity cache prune
  propensity cache prune --cache-ttl 1h`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetMarketStore()
		if store == nil {
			contract.LogFatal("Failed to prune cache", fmt.Errorf("cache backend %q is not enabled", cfg.CacheBackend))
		}
		cutoff := time.Now().Add(-cfg.CacheTTL)
		n, err := store.Prune(cutoff)
		if err != nil {
			contract.LogFatal("Failed to prune cache", err)
		}
		fmt.Printf("Pruned %d market snapshot(s) older than %s.\n", n, cutoff.Format(time.RFC3339))
	},
}
