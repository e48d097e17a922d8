package iocache

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/propensity/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteCache(t *testing.T) *CacheStoreImpl {
	t.Helper()
	store, err := NewCacheStore(marketTable, schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*CacheStoreImpl)
}

func TestCacheStore_SQLite(t *testing.T) {
	t.Run("miss", func(t *testing.T) {
		store := newSQLiteCache(t)
		_, _, _, err := store.Get("zip:94102")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("set then get", func(t *testing.T) {
		store := newSQLiteCache(t)
		require.NoError(t, store.Set("zip:94102", []byte(`{"zip":"94102"}`), 1, 1700000000))

		value, version, ts, err := store.Get("zip:94102")
		require.NoError(t, err)
		assert.JSONEq(t, `{"zip":"94102"}`, string(value))
		assert.Equal(t, 1, version)
		assert.Equal(t, int64(1700000000), ts)
	})

	t.Run("set overwrites", func(t *testing.T) {
		store := newSQLiteCache(t)
		require.NoError(t, store.Set("state:tx", []byte("old"), 1, 100))
		require.NoError(t, store.Set("state:tx", []byte("new"), 2, 200))

		value, version, ts, err := store.Get("state:tx")
		require.NoError(t, err)
		assert.Equal(t, "new", string(value))
		assert.Equal(t, 2, version)
		assert.Equal(t, int64(200), ts)
	})

	t.Run("status and clear", func(t *testing.T) {
		store := newSQLiteCache(t)
		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Equal(t, "sqlite", status.Backend)
		assert.Zero(t, status.TotalEntries)

		require.NoError(t, store.Set("a", []byte("1"), 1, 1000))
		require.NoError(t, store.Set("b", []byte("2"), 1, 3000))

		status, err = store.GetStatus()
		require.NoError(t, err)
		assert.Equal(t, 2, status.TotalEntries)
		assert.Equal(t, time.Unix(3000, 0), status.LastEntryTime)
		assert.Equal(t, time.Unix(1000, 0), status.OldestEntryTime)
		assert.Greater(t, status.TableSizeBytes, int64(0))

		require.NoError(t, store.Clear())
		status, err = store.GetStatus()
		require.NoError(t, err)
		assert.Zero(t, status.TotalEntries)
	})

	t.Run("prune keeps fresh snapshots", func(t *testing.T) {
		store := newSQLiteCache(t)
		require.NoError(t, store.Set("zip:78701", []byte("old"), 1, 1000))
		require.NoError(t, store.Set("region:austin", []byte("old"), 1, 1999))
		require.NoError(t, store.Set("state:tx", []byte("fresh"), 1, 2000))

		n, err := store.Prune(time.Unix(2000, 0))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, _, _, err = store.Get("zip:78701")
		assert.ErrorIs(t, err, sql.ErrNoRows)
		value, _, _, err := store.Get("state:tx")
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(value))
	})
}

func TestCacheStore_NoneBackend(t *testing.T) {
	store, err := NewCacheStore(marketTable, schema.NoneBackend, "")
	require.NoError(t, err)

	_, _, _, err = store.Get("zip:1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, store.Set("zip:1", []byte("x"), 1, 1))
	assert.NoError(t, store.Clear())
	n, err := store.Prune(time.Now())
	assert.NoError(t, err)
	assert.Zero(t, n)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, "none", status.Backend)
	assert.NoError(t, store.Close())
}

func TestNewCacheStore_Errors(t *testing.T) {
	_, err := NewCacheStore("bad-name; DROP", schema.SQLiteBackend, "")
	assert.Error(t, err)

	_, err = NewCacheStore(marketTable, schema.DatabaseBackend("oracle"), "")
	assert.ErrorContains(t, err, "unsupported cache backend")
}

func TestSQLUtils(t *testing.T) {
	assert.NoError(t, validateTableName("propensity_market_cache"))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("1table"))

	assert.Equal(t, "`runs`", quoteTableName("runs", schema.MySQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.PostgreSQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.SQLiteBackend))

	assert.Equal(t, "$1, $2, $3", placeholders(schema.PostgreSQLBackend, 3))
	assert.Equal(t, "?, ?", placeholders(schema.MySQLBackend, 2))
	assert.Equal(t, "", placeholders(schema.SQLiteBackend, 0))

	assert.Equal(t, "sqlite", driverFor(schema.SQLiteBackend))
	assert.Equal(t, "pgx", driverFor(schema.PostgreSQLBackend))
	assert.Equal(t, "", driverFor(schema.RedisBackend))

	ts := time.Date(2025, 3, 1, 12, 30, 0, 5, time.UTC)
	text, ok := formatTime(ts, schema.SQLiteBackend).(string)
	require.True(t, ok)
	parsed, err := parseTime(text)
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))
	assert.Equal(t, ts, formatTime(ts, schema.PostgreSQLBackend))

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

func TestOpenSQL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.db")
	db, err := openSQL(schema.SQLiteBackend, path, "CREATE TABLE IF NOT EXISTS t (id INTEGER)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO t (id) VALUES (1)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = openSQL(schema.RedisBackend, "redis://localhost")
	assert.ErrorContains(t, err, "unsupported SQL backend")

	_, err = openSQL(schema.SQLiteBackend, path, "NOT SQL")
	assert.ErrorContains(t, err, "failed to bootstrap sqlite schema")
}
