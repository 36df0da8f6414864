package datastore

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldlog"
	"github.com/flagkit/flagkit-go/ldmodel"
)

// CachePolicy selects how the Caching Wrapper behaves once a cached entry's TTL has elapsed
// (spec.md 4.3).
type CachePolicy int

// CachePolicy values.
const (
	// EVICT: the expired entry is dropped; the next read blocks on the backend, and a backend
	// error surfaces to the caller.
	EVICT CachePolicy = iota
	// REFRESH: the expired read blocks on the backend; a backend error serves the prior value
	// instead, if one exists.
	REFRESH
	// REFRESHASYNC: the expired read returns the prior value immediately and kicks off a
	// background refresh; errors during that refresh are logged and the prior value is kept.
	REFRESHASYNC
)

// CacheTTL configures the Caching Wrapper's expiration behavior. Zero bypasses the cache
// entirely; positive expires entries after the duration; negative caches indefinitely.
type CacheTTL time.Duration

type cacheEntry struct {
	item      interfaces.ItemDescriptor
	found     bool
	expiresAt time.Time
	noExpiry  bool
}

func (e cacheEntry) expired(now time.Time) bool {
	if e.noExpiry {
		return false
	}
	return now.After(e.expiresAt)
}

// CachingWrapper sits between callers and a persistent Data Store backend, implementing the
// contract described in spec.md 4.3: go-cache + singleflight for TTL caching and coalesced
// reads in front of a persistent backend, with an explicit CachePolicy including REFRESH_ASYNC.
type CachingWrapper struct {
	backend interfaces.DataStore
	ttl     CacheTTL
	policy  CachePolicy
	loggers ldlog.Loggers

	itemCache  *gocache.Cache
	allCache   *gocache.Cache
	group      singleflight.Group
	refreshing sync.Map // tracks in-flight async refreshes so we don't pile up goroutines per key

	mu          sync.Mutex
	initialized bool
}

// NewCachingWrapper constructs a Caching Wrapper around backend.
func NewCachingWrapper(backend interfaces.DataStore, ttl CacheTTL, policy CachePolicy, loggers ldlog.Loggers) *CachingWrapper {
	return &CachingWrapper{
		backend:   backend,
		ttl:       ttl,
		policy:    policy,
		loggers:   loggers,
		itemCache: gocache.New(gocache.NoExpiration, 1*time.Minute),
		allCache:  gocache.New(gocache.NoExpiration, 1*time.Minute),
	}
}

func (w *CachingWrapper) hasInfiniteCache() bool {
	return w.ttl < 0
}

func (w *CachingWrapper) bypassed() bool {
	return w.ttl == 0
}

func itemCacheKey(kind ldmodel.Kind, key string) string {
	return kind.Name + ":" + key
}

// Init writes through to the backend, then invalidates all cached entries and marks initialized
// true. Every call is passed to the backend's Init; the memoization applies to IsInitialized,
// which stops asking the backend once it has reported true.
func (w *CachingWrapper) Init(allData []interfaces.Collection) error {
	if err := w.backend.Init(allData); err != nil {
		return err
	}
	w.itemCache.Flush()
	w.allCache.Flush()
	w.mu.Lock()
	w.initialized = true
	w.mu.Unlock()
	return nil
}

func (w *CachingWrapper) Get(kind ldmodel.Kind, key string) (interfaces.ItemDescriptor, bool, error) {
	if w.bypassed() {
		return w.backend.Get(kind, key)
	}

	cacheKey := itemCacheKey(kind, key)
	if cached, ok := w.itemCache.Get(cacheKey); ok {
		entry := cached.(cacheEntry)
		now := time.Now()
		if !entry.expired(now) {
			return entry.item, entry.found, nil
		}
		switch w.policy {
		case REFRESHASYNC:
			w.triggerAsyncRefresh(kind, key, cacheKey)
			return entry.item, entry.found, nil
		case REFRESH:
			item, found, err := w.fetchAndCache(kind, key, cacheKey)
			if err != nil {
				w.loggers.Warnf("data store read failed, serving stale value for %s: %s", cacheKey, err)
				return entry.item, entry.found, nil
			}
			return item, found, nil
		case EVICT:
			w.itemCache.Delete(cacheKey)
		}
	}

	return w.fetchAndCache(kind, key, cacheKey)
}

// fetchAndCache performs (or joins) a single coalesced backend read for cacheKey and stores the
// result, per spec.md 4.3's "concurrent gets for the same key must coalesce into a single backend
// read."
func (w *CachingWrapper) fetchAndCache(kind ldmodel.Kind, key, cacheKey string) (interfaces.ItemDescriptor, bool, error) {
	result, err, _ := w.group.Do(cacheKey, func() (interface{}, error) {
		item, found, err := w.backend.Get(kind, key)
		if err != nil {
			return nil, err
		}
		w.storeItem(cacheKey, item, found)
		return cacheEntry{item: item, found: found}, nil
	})
	if err != nil {
		return interfaces.ItemDescriptor{}, false, err
	}
	entry := result.(cacheEntry)
	return entry.item, entry.found, nil
}

func (w *CachingWrapper) storeItem(cacheKey string, item interfaces.ItemDescriptor, found bool) {
	entry := cacheEntry{item: item, found: found}
	if w.hasInfiniteCache() {
		entry.noExpiry = true
	} else {
		entry.expiresAt = time.Now().Add(time.Duration(w.ttl))
	}
	w.itemCache.Set(cacheKey, entry, gocache.NoExpiration)
}

func (w *CachingWrapper) triggerAsyncRefresh(kind ldmodel.Kind, key, cacheKey string) {
	if _, loaded := w.refreshing.LoadOrStore(cacheKey, true); loaded {
		return // a refresh for this key is already in flight
	}
	go func() {
		defer w.refreshing.Delete(cacheKey)
		item, found, err := w.backend.Get(kind, key)
		if err != nil {
			w.loggers.Warnf("async cache refresh failed for %s, keeping prior value: %s", cacheKey, err)
			return
		}
		w.storeItem(cacheKey, item, found)
	}()
}

func (w *CachingWrapper) GetAll(kind ldmodel.Kind) ([]interfaces.KeyedItemDescriptor, error) {
	if w.bypassed() {
		return w.backend.GetAll(kind)
	}

	cacheKey := "all:" + kind.Name
	if cached, ok := w.allCache.Get(cacheKey); ok {
		entry := cached.(allCacheEntry)
		now := time.Now()
		if !entry.expired(now) {
			return entry.items, nil
		}
		switch w.policy {
		case REFRESHASYNC:
			w.triggerAsyncAllRefresh(kind, cacheKey)
			return entry.items, nil
		case REFRESH:
			items, err := w.fetchAllAndCache(kind, cacheKey)
			if err != nil {
				w.loggers.Warnf("data store read failed, serving stale snapshot for %s: %s", cacheKey, err)
				return entry.items, nil
			}
			return items, nil
		case EVICT:
			w.allCache.Delete(cacheKey)
		}
	}

	return w.fetchAllAndCache(kind, cacheKey)
}

type allCacheEntry struct {
	items     []interfaces.KeyedItemDescriptor
	expiresAt time.Time
	noExpiry  bool
}

func (e allCacheEntry) expired(now time.Time) bool {
	if e.noExpiry {
		return false
	}
	return now.After(e.expiresAt)
}

func (w *CachingWrapper) fetchAllAndCache(kind ldmodel.Kind, cacheKey string) ([]interfaces.KeyedItemDescriptor, error) {
	result, err, _ := w.group.Do(cacheKey, func() (interface{}, error) {
		items, err := w.backend.GetAll(kind)
		if err != nil {
			return nil, err
		}
		w.storeAll(cacheKey, items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]interfaces.KeyedItemDescriptor), nil
}

func (w *CachingWrapper) storeAll(cacheKey string, items []interfaces.KeyedItemDescriptor) {
	entry := allCacheEntry{items: items}
	if w.hasInfiniteCache() {
		entry.noExpiry = true
	} else {
		entry.expiresAt = time.Now().Add(time.Duration(w.ttl))
	}
	w.allCache.Set(cacheKey, entry, gocache.NoExpiration)
}

func (w *CachingWrapper) triggerAsyncAllRefresh(kind ldmodel.Kind, cacheKey string) {
	if _, loaded := w.refreshing.LoadOrStore(cacheKey, true); loaded {
		return
	}
	go func() {
		defer w.refreshing.Delete(cacheKey)
		items, err := w.backend.GetAll(kind)
		if err != nil {
			w.loggers.Warnf("async cache refresh failed for %s, keeping prior snapshot: %s", cacheKey, err)
			return
		}
		w.storeAll(cacheKey, items)
	}()
}

// Upsert writes through to the backend, then invalidates the affected cache entries.
func (w *CachingWrapper) Upsert(kind ldmodel.Kind, key string, item interfaces.ItemDescriptor) (bool, error) {
	applied, err := w.backend.Upsert(kind, key, item)
	if err != nil {
		return false, err
	}
	if !w.bypassed() {
		w.itemCache.Delete(itemCacheKey(kind, key))
		w.allCache.Delete("all:" + kind.Name)
	}
	return applied, nil
}

func (w *CachingWrapper) IsInitialized() bool {
	w.mu.Lock()
	initialized := w.initialized
	w.mu.Unlock()
	if initialized {
		return true
	}
	// Once true, the backend's initialized flag never goes false again, so it's safe (and
	// memoizes the common case) to latch it locally and stop asking once it flips.
	if w.backend.IsInitialized() {
		w.mu.Lock()
		w.initialized = true
		w.mu.Unlock()
		return true
	}
	return false
}

func (w *CachingWrapper) Close() error {
	return w.backend.Close()
}

var _ interfaces.DataStore = (*CachingWrapper)(nil)
