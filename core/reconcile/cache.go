package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ReconcileCache holds pre-built indices for fast targeted reconciliation.
type ReconcileCache struct {
	// LinkIndex maps pair keys to the latest link.
	LinkIndex map[string]LinkItem

	// StatusIndex maps pair keys to the legacy status row.
	StatusIndex map[string]StatusItem

	// Built is the timestamp when this cache was built.
	Built time.Time

	// TTL is the time-to-live for this cache.
	TTL time.Duration
}

// IsExpired returns true if this cache has expired based on its TTL.
func (c *ReconcileCache) IsExpired() bool {
	if c.TTL == 0 {
		return true // No caching
	}
	return time.Since(c.Built) > c.TTL
}

// cacheStore holds all reconcile caches keyed by spec cache key.
type cacheStore struct {
	mu     sync.RWMutex
	caches map[string]*ReconcileCache
	sf     singleflight.Group
}

var globalCacheStore = &cacheStore{
	caches: make(map[string]*ReconcileCache),
}

// BuildCache loads both indices concurrently.
// This function does NOT store the cache; use GetOrBuildCache for that.
func BuildCache(ctx context.Context, spec *Spec, db *gorm.DB) (*ReconcileCache, error) {
	var (
		linkIndex   map[string]LinkItem
		statusIndex map[string]StatusItem
		linkErr     error
		statusErr   error
		wg          sync.WaitGroup
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		linkIndex, linkErr = spec.Adapter.LoadLinkIndex(ctx, db, spec.Scope)
	}()

	go func() {
		defer wg.Done()
		statusIndex, statusErr = spec.Adapter.LoadStatusIndex(ctx, db, spec.Scope)
	}()

	wg.Wait()

	if linkErr != nil {
		return nil, linkErr
	}
	if statusErr != nil {
		return nil, statusErr
	}

	return &ReconcileCache{
		LinkIndex:   linkIndex,
		StatusIndex: statusIndex,
		Built:       time.Now(),
		TTL:         spec.CacheTTL,
	}, nil
}

// GetOrBuildCache retrieves a cache for the given spec from the store,
// or builds a new one if it doesn't exist or has expired.
// Uses singleflight to prevent cache stampedes.
func GetOrBuildCache(ctx context.Context, spec *Spec, db *gorm.DB) (*ReconcileCache, error) {
	cacheKey := spec.CacheKey()

	globalCacheStore.mu.RLock()
	cache, exists := globalCacheStore.caches[cacheKey]
	globalCacheStore.mu.RUnlock()

	if exists && !cache.IsExpired() {
		return cache, nil
	}

	result, err, _ := globalCacheStore.sf.Do(cacheKey, func() (interface{}, error) {
		// Double-check after acquiring singleflight lock
		globalCacheStore.mu.RLock()
		cache, exists := globalCacheStore.caches[cacheKey]
		globalCacheStore.mu.RUnlock()

		if exists && !cache.IsExpired() {
			return cache, nil
		}

		newCache, err := BuildCache(ctx, spec, db)
		if err != nil {
			return nil, err
		}

		if spec.CacheTTL > 0 {
			globalCacheStore.mu.Lock()
			globalCacheStore.caches[cacheKey] = newCache
			globalCacheStore.mu.Unlock()
		}

		return newCache, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*ReconcileCache), nil
}

// InvalidateCache removes the cache for the given spec from the store.
// Call it after applying a plan so the next read sees the writes.
func InvalidateCache(spec *Spec) {
	cacheKey := spec.CacheKey()
	globalCacheStore.mu.Lock()
	delete(globalCacheStore.caches, cacheKey)
	globalCacheStore.mu.Unlock()
}
