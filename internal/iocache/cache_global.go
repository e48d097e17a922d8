package iocache

import (
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"github.com/redis/go-redis/v9"
)

// marketTable is the name of the table for market-data caching.
const marketTable = "propensity_market_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetDBFilePath returns the path to the SQLite DB file for market cache storage.
func GetDBFilePath() string {
	return contract.GetCacheDBFilePath()
}

// GetRunDBFilePath returns the path to the SQLite DB file for score-run storage.
func GetRunDBFilePath() string {
	return contract.GetRunDBFilePath()
}

// NewMarketStore opens the market cache for any supported backend, redis included.
func NewMarketStore(backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	if backend == schema.RedisBackend {
		return NewRedisStore(connStr)
	}
	return NewCacheStore(marketTable, backend, connStr)
}

// InitStores initializes the global manager with separate market and run stores.
// An empty backend leaves the corresponding store disabled.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, runBackend schema.DatabaseBackend, runConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var err error

		var marketStore contract.CacheStore
		if cacheBackend != "" {
			marketStore, err = NewMarketStore(cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize market caching: %w", err)
				return
			}
		}

		var runStore contract.RunStore
		if runBackend != "" {
			runStore, err = NewRunStore(runBackend, runConnStr)
			if err != nil {
				if marketStore != nil {
					_ = marketStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize run store: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.market = marketStore
		Manager.runs = runStore
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.market != nil {
			_ = Manager.market.Close()
		}
		if Manager.runs != nil {
			_ = Manager.runs.Close()
		}
	})
}

// ClearCache clears the market cache for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For Redis, it removes every cache key.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return removeSQLiteFile(dbFilePath)

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTables(backend, connStr, marketTable)

	case schema.RedisBackend:
		opts, err := redis.ParseURL(connStr)
		if err != nil {
			return fmt.Errorf("invalid Redis connection string: %w", err)
		}
		store := NewRedisStoreWithClient(redis.NewClient(opts))
		defer func() { _ = store.Close() }()
		return store.Clear()

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", backend)
	}
}

// ClearRuns clears the score-run data for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the run tables.
func ClearRuns(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return removeSQLiteFile(dbFilePath)

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTables(backend, connStr, propertyScoresTable, scoreRunsTable)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported run backend for clearing: %s", backend)
	}
}

func removeSQLiteFile(dbFilePath string) error {
	if dbFilePath == "" {
		return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
	}
	if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
	}
	return nil
}

// clearSQLTables drops the given tables if they exist.
func clearSQLTables(backend schema.DatabaseBackend, connStr string, tables ...string) error {
	drops := make([]string, 0, len(tables))
	for _, table := range tables {
		drops = append(drops, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend)))
	}
	db, err := openSQL(backend, connStr, drops...)
	if err != nil {
		return err
	}
	return db.Close()
}
