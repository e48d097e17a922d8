package marketdata

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
)

// currentCacheVersion defines the version of the cached market-data encoding.
const currentCacheVersion = 1

// CachedProvider puts a durable CacheStore in front of another provider.
// Entries older than TTL or written with another version are refetched.
type CachedProvider struct {
	Source contract.MarketDataProvider
	Store  contract.CacheStore
	TTL    time.Duration
	Now    func() time.Time
}

var _ contract.MarketDataProvider = &CachedProvider{} // Compile-time check

// NewCachedProvider wraps source with store. A nil store disables caching.
func NewCachedProvider(source contract.MarketDataProvider, store contract.CacheStore, ttl time.Duration) *CachedProvider {
	return &CachedProvider{Source: source, Store: store, TTL: ttl, Now: time.Now}
}

// GetMarketData implements contract.MarketDataProvider.
func (c *CachedProvider) GetMarketData(ctx context.Context, key contract.LocationKey) (*schema.MarketData, error) {
	if c.Store == nil {
		return c.Source.GetMarketData(ctx, key)
	}

	cacheKey := CacheKey(key)
	if data, ok := c.checkCacheHit(cacheKey); ok {
		return data, nil
	}

	data, err := c.Source.GetMarketData(ctx, key)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(data); err == nil {
		if err := c.Store.Set(cacheKey, encoded, currentCacheVersion, c.now().Unix()); err != nil {
			contract.LogWarn("failed to cache market data", err)
		}
	}
	return data, nil
}

// checkCacheHit attempts to retrieve and validate a cached entry.
func (c *CachedProvider) checkCacheHit(key string) (*schema.MarketData, bool) {
	raw, version, ts, err := c.Store.Get(key)
	if err != nil || raw == nil {
		return nil, false
	}
	if version != currentCacheVersion {
		return nil, false
	}
	if c.TTL > 0 && c.now().Sub(time.Unix(ts, 0)) > c.TTL {
		return nil, false
	}
	var data *schema.MarketData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false
	}
	return data, true
}

func (c *CachedProvider) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// CacheKey hashes a location key into a store key.
func CacheKey(key contract.LocationKey) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte("market:"+key.String())))
}
