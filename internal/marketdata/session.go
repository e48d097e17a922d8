package marketdata

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"golang.org/x/sync/singleflight"
)

// Session memoizes market-data lookups for the lifetime of one scoring batch.
// Concurrent lookups of the same key share a single in-flight fetch, and
// "no data" results are memoized as well.
type Session struct {
	provider contract.MarketDataProvider

	group singleflight.Group
	mu    sync.RWMutex
	memo  map[string]*schema.MarketData

	fetches atomic.Int64
}

// NewSession creates a session over the given provider. A nil provider yields no data.
func NewSession(provider contract.MarketDataProvider) *Session {
	return &Session{
		provider: provider,
		memo:     make(map[string]*schema.MarketData),
	}
}

// Lookup returns the first available market data for a property, trying
// ZIP, then city and state, then state. It returns nil when nothing is known.
func (s *Session) Lookup(ctx context.Context, p schema.PropertyOpportunity) *schema.MarketData {
	for _, key := range KeysFor(p) {
		if data := s.Get(ctx, key); !IsEmpty(data) {
			return data
		}
	}
	return nil
}

// Get returns the memoized data for one key, fetching it at most once.
// Fetch errors are logged and treated as absence; cancellations are not memoized.
func (s *Session) Get(ctx context.Context, key contract.LocationKey) *schema.MarketData {
	if s.provider == nil {
		return nil
	}
	k := key.String()

	s.mu.RLock()
	data, ok := s.memo[k]
	s.mu.RUnlock()
	if ok {
		return data
	}

	v, _, _ := s.group.Do(k, func() (any, error) {
		s.mu.RLock()
		cached, ok := s.memo[k]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		s.fetches.Add(1)
		fetched, err := s.provider.GetMarketData(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return (*schema.MarketData)(nil), nil
			}
			contract.LogWarn("market data lookup failed for "+k, err)
			fetched = nil
		}

		s.mu.Lock()
		s.memo[k] = fetched
		s.mu.Unlock()
		return fetched, nil
	})
	data, _ = v.(*schema.MarketData)
	return data
}

// Fetches returns how many provider calls the session made.
func (s *Session) Fetches() int64 {
	return s.fetches.Load()
}

// Size returns the number of memoized keys.
func (s *Session) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memo)
}
