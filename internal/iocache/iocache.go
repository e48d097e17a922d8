// Package iocache is for durable storage of market lookups and score runs.
package iocache

import (
	"sync"

	"github.com/huangsam/propensity/internal/contract"
)

// CacheStoreManager manages the market cache and the run store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	market       contract.CacheStore
	runs         contract.RunStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetMarketStore returns the market-data CacheStore.
func (mgr *CacheStoreManager) GetMarketStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.market
}

// GetRunStore returns the score-run RunStore.
func (mgr *CacheStoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}
