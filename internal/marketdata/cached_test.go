package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/propensity/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryStore is a minimal in-memory CacheStore.
type memoryStore struct {
	values   map[string][]byte
	versions map[string]int
	stamps   map[string]int64
	sets     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string][]byte{}, versions: map[string]int{}, stamps: map[string]int64{}}
}

func (m *memoryStore) Get(key string) ([]byte, int, int64, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, 0, 0, errors.New("miss")
	}
	return v, m.versions[key], m.stamps[key], nil
}

func (m *memoryStore) Set(key string, value []byte, version int, ts int64) error {
	m.values[key] = value
	m.versions[key] = version
	m.stamps[key] = ts
	m.sets++
	return nil
}

func (m *memoryStore) Clear() error {
	m.values = map[string][]byte{}
	return nil
}

func (m *memoryStore) Prune(cutoff time.Time) (int64, error) {
	var n int64
	for k, ts := range m.stamps {
		if ts < cutoff.Unix() {
			delete(m.values, k)
			delete(m.stamps, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) GetStatus() (schema.CacheStatus, error) {
	return schema.CacheStatus{Backend: "memory", Connected: true, TotalEntries: len(m.values)}, nil
}

func (m *memoryStore) Close() error { return nil }

func TestCachedProvider_HitAndMiss(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	source := &MockProvider{}
	source.On("GetMarketData", mock.Anything, zipKey("94102")).Return(listing(9), nil).Once()

	store := newMemoryStore()
	c := NewCachedProvider(source, store, time.Hour)
	c.Now = func() time.Time { return now }

	first, err := c.GetMarketData(context.Background(), zipKey("94102"))
	require.NoError(t, err)
	assert.Equal(t, 9.0, *first.Listing.MedianDaysOnMarket)
	assert.Equal(t, 1, store.sets)

	second, err := c.GetMarketData(context.Background(), zipKey("94102"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	source.AssertExpectations(t)
}

func TestCachedProvider_StaleAndVersionMismatch(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	key := zipKey("78701")
	encoded, err := json.Marshal(listing(50))
	require.NoError(t, err)

	tests := []struct {
		name    string
		version int
		ts      int64
	}{
		{"stale entry", currentCacheVersion, now.Add(-2 * time.Hour).Unix()},
		{"old version", currentCacheVersion + 1, now.Unix()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			require.NoError(t, store.Set(CacheKey(key), encoded, tt.version, tt.ts))

			source := &MockProvider{}
			source.On("GetMarketData", mock.Anything, key).Return(listing(20), nil).Once()

			c := NewCachedProvider(source, store, time.Hour)
			c.Now = func() time.Time { return now }
			got, err := c.GetMarketData(context.Background(), key)
			require.NoError(t, err)
			assert.Equal(t, 20.0, *got.Listing.MedianDaysOnMarket)
			source.AssertExpectations(t)
		})
	}
}

func TestCachedProvider_SourceError(t *testing.T) {
	source := &MockProvider{}
	source.On("GetMarketData", mock.Anything, zipKey("00000")).Return(nil, errors.New("timeout"))

	store := newMemoryStore()
	_, err := NewCachedProvider(source, store, time.Hour).GetMarketData(context.Background(), zipKey("00000"))
	assert.Error(t, err)
	assert.Zero(t, store.sets)
}

func TestCachedProvider_NilStorePassesThrough(t *testing.T) {
	source := &MockProvider{}
	source.On("GetMarketData", mock.Anything, zipKey("94102")).Return(listing(7), nil).Twice()

	c := NewCachedProvider(source, nil, time.Hour)
	for range 2 {
		_, err := c.GetMarketData(context.Background(), zipKey("94102"))
		require.NoError(t, err)
	}
	source.AssertExpectations(t)
}

func TestCacheKey_Stable(t *testing.T) {
	assert.Equal(t, CacheKey(zipKey("94102")), CacheKey(zipKey("94102")))
	assert.NotEqual(t, CacheKey(zipKey("94102")), CacheKey(zipKey("94103")))
	assert.Len(t, CacheKey(zipKey("94102")), 64)
}
