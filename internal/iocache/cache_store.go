package iocache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
)

// CacheStoreImpl keeps market-data lookups in a SQL table.
type CacheStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.CacheStore = &CacheStoreImpl{} // Compile-time check

// NewCacheStore opens the market snapshot table for a SQL backend.
// The redis backend is served by NewRedisStore.
func NewCacheStore(tableName string, backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	store := &CacheStoreImpl{tableName: tableName, backend: backend, connStr: connStr}

	switch backend {
	case schema.NoneBackend:
		return store, nil
	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = GetDBFilePath()
		}
	case schema.MySQLBackend, schema.PostgreSQLBackend:
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	db, err := openSQL(backend, connStr, marketTableDDL(tableName, backend)...)
	if err != nil {
		return nil, fmt.Errorf("market cache: %w", err)
	}
	store.db = db
	return store, nil
}

// marketTableDDL returns the statements that create the snapshot table and
// its fetched_at index, which Prune scans.
func marketTableDDL(tableName string, backend schema.DatabaseBackend) []string {
	table := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return []string{fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				geo_key VARCHAR(255) PRIMARY KEY,
				snapshot MEDIUMBLOB NOT NULL,
				snapshot_version INT NOT NULL,
				fetched_at BIGINT NOT NULL,
				INDEX idx_fetched_at (fetched_at)
			)`, table)}

	case schema.PostgreSQLBackend:
		return []string{
			fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				geo_key TEXT PRIMARY KEY,
				snapshot BYTEA NOT NULL,
				snapshot_version INTEGER NOT NULL,
				fetched_at BIGINT NOT NULL
			)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_fetched_at ON %s (fetched_at)`, tableName, table),
		}

	default: // SQLite
		return []string{
			fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				geo_key TEXT PRIMARY KEY,
				snapshot BLOB NOT NULL,
				snapshot_version INTEGER NOT NULL,
				fetched_at INTEGER NOT NULL
			) WITHOUT ROWID`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_fetched_at ON %s (fetched_at)`, tableName, table),
		}
	}
}

// Get retrieves a value by key from the store.
func (ps *CacheStoreImpl) Get(key string) ([]byte, int, int64, error) {
	if ps.db == nil {
		return nil, 0, 0, sql.ErrNoRows
	}

	var value []byte
	var version int
	var ts int64

	query := fmt.Sprintf(`SELECT snapshot, snapshot_version, fetched_at FROM %s WHERE geo_key = %s`,
		quoteTableName(ps.tableName, ps.backend), placeholders(ps.backend, 1))
	if err := ps.db.QueryRow(query, key).Scan(&value, &version, &ts); err != nil {
		return nil, 0, 0, err
	}
	return value, version, ts, nil
}

// Set inserts or replaces a key/value pair in the store.
func (ps *CacheStoreImpl) Set(key string, value []byte, version int, timestamp int64) error {
	if ps.db == nil {
		return nil
	}
	_, err := ps.db.Exec(ps.getUpsertQuery(), key, value, version, timestamp)
	return err
}

// getUpsertQuery returns the UPSERT query for the backend.
func (ps *CacheStoreImpl) getUpsertQuery() string {
	quotedTableName := quoteTableName(ps.tableName, ps.backend)
	switch ps.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (geo_key, snapshot, snapshot_version, fetched_at) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE snapshot = new.snapshot, snapshot_version = new.snapshot_version, fetched_at = new.fetched_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (geo_key, snapshot, snapshot_version, fetched_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (geo_key) DO UPDATE SET snapshot = EXCLUDED.snapshot, snapshot_version = EXCLUDED.snapshot_version, fetched_at = EXCLUDED.fetched_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (geo_key, snapshot, snapshot_version, fetched_at) VALUES (?, ?, ?, ?)`, quotedTableName)
	}
}

// Clear removes every cached entry but keeps the table.
func (ps *CacheStoreImpl) Clear() error {
	if ps.db == nil {
		return nil
	}
	if _, err := ps.db.Exec(fmt.Sprintf("DELETE FROM %s", quoteTableName(ps.tableName, ps.backend))); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", ps.tableName, err)
	}
	return nil
}

// Prune drops market snapshots older than cutoff.
func (ps *CacheStoreImpl) Prune(cutoff time.Time) (int64, error) {
	if ps.db == nil {
		return 0, nil
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE fetched_at < %s",
		quoteTableName(ps.tableName, ps.backend), placeholders(ps.backend, 1))
	res, err := ps.db.Exec(query, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune table %s: %w", ps.tableName, err)
	}
	return res.RowsAffected()
}

// Close closes the underlying DB connection.
func (ps *CacheStoreImpl) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

// GetStatus reports entry count, fetch-time range and footprint of the snapshot table.
func (ps *CacheStoreImpl) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(ps.backend), Connected: ps.db != nil}
	if ps.db == nil {
		return status, nil
	}

	var newest, oldest int64
	query := fmt.Sprintf("SELECT COUNT(*), COALESCE(MAX(fetched_at), 0), COALESCE(MIN(fetched_at), 0) FROM %s",
		quoteTableName(ps.tableName, ps.backend))
	if err := ps.db.QueryRow(query).Scan(&status.TotalEntries, &newest, &oldest); err != nil {
		return status, fmt.Errorf("failed to summarize %s: %w", ps.tableName, err)
	}
	if status.TotalEntries == 0 {
		return status, nil
	}
	status.LastEntryTime = time.Unix(newest, 0)
	status.OldestEntryTime = time.Unix(oldest, 0)
	status.TableSizeBytes = ps.tableSize(int64(status.TotalEntries))
	return status, nil
}

// tableSize asks the backend for the table footprint, falling back to a
// per-row estimate when the backend cannot tell.
func (ps *CacheStoreImpl) tableSize(entries int64) int64 {
	estimate := entries * 1000
	var size int64

	switch ps.backend {
	case schema.SQLiteBackend:
		row := ps.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return 0
		}
		return size

	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(ps.connStr)
		if err != nil || cfg.DBName == "" {
			return estimate
		}
		row := ps.db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?", cfg.DBName, ps.tableName)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
		return size

	case schema.PostgreSQLBackend:
		row := ps.db.QueryRow("SELECT pg_total_relation_size($1)", ps.tableName)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
		return size
	}
	return estimate
}
