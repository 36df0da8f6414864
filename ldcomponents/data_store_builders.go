package ldcomponents

import (
	"time"

	"github.com/flagkit/flagkit-go/internal/datastore"
	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/subsystems"
)

// PersistentDataStoreDefaultCacheTime is the default in-memory TTL the Caching Wrapper applies in
// front of a persistent backend when a caller doesn't override it with CacheTime.
const PersistentDataStoreDefaultCacheTime = 15 * time.Second

// InMemoryDataStoreBuilder configures the default, non-persistent Data Store (spec.md 4.2).
type InMemoryDataStoreBuilder struct{}

// InMemoryDataStore returns a builder for the default in-memory Data Store.
func InMemoryDataStore() *InMemoryDataStoreBuilder {
	return &InMemoryDataStoreBuilder{}
}

// Build constructs the in-memory Data Store.
func (b *InMemoryDataStoreBuilder) Build(context subsystems.ClientContext) (interfaces.DataStore, error) {
	return datastore.NewMemoryStore(), nil
}

// PersistentDataStoreBuilder wraps a persistent backend's own builder with the universal Caching
// Wrapper behavior (spec.md 4.2's "Caching Wrapper" section) — TTL, cache-or-bypass, and the
// EVICT/REFRESH/REFRESHASYNC policy choice. Grounded on
// ldcomponents/persistent_data_store_builder.go; the backend itself (Redis, DynamoDB, Consul) is
// out of scope per spec.md 1, so backendFactory here is any ComponentConfigurer that produces an
// interfaces.DataStore, typically a hand-rolled or test fake rather than a shipped integration.
type PersistentDataStoreBuilder struct {
	backendFactory subsystems.ComponentConfigurer[interfaces.DataStore]
	cacheTTL       time.Duration
	policy         datastore.CachePolicy
}

// PersistentDataStore returns a builder wrapping backendFactory's Data Store with a cache.
func PersistentDataStore(
	backendFactory subsystems.ComponentConfigurer[interfaces.DataStore],
) *PersistentDataStoreBuilder {
	return &PersistentDataStoreBuilder{
		backendFactory: backendFactory,
		cacheTTL:       PersistentDataStoreDefaultCacheTime,
		policy:         datastore.REFRESH,
	}
}

// CacheTime sets the cache TTL. Zero disables caching (every read reaches the backend); negative
// caches forever, only ever refreshed by writes.
func (b *PersistentDataStoreBuilder) CacheTime(cacheTime time.Duration) *PersistentDataStoreBuilder {
	b.cacheTTL = cacheTime
	return b
}

// CacheSeconds is a shortcut for CacheTime in whole seconds.
func (b *PersistentDataStoreBuilder) CacheSeconds(seconds int) *PersistentDataStoreBuilder {
	return b.CacheTime(time.Duration(seconds) * time.Second)
}

// CacheForever caches indefinitely; see CachePolicy's EVICT semantics for the tradeoff this
// implies during an outage.
func (b *PersistentDataStoreBuilder) CacheForever() *PersistentDataStoreBuilder {
	return b.CacheTime(-1 * time.Millisecond)
}

// NoCaching disables the cache entirely; every read goes straight to the backend.
func (b *PersistentDataStoreBuilder) NoCaching() *PersistentDataStoreBuilder {
	return b.CacheTime(0)
}

// CacheEvictOnError switches to the EVICT policy: a read that hits the backend and fails returns
// the error rather than stale cached data.
func (b *PersistentDataStoreBuilder) CacheEvictOnError() *PersistentDataStoreBuilder {
	b.policy = datastore.EVICT
	return b
}

// CacheRefreshAsync switches to the REFRESHASYNC policy: an expired read is served stale
// immediately while a background goroutine refreshes the entry.
func (b *PersistentDataStoreBuilder) CacheRefreshAsync() *PersistentDataStoreBuilder {
	b.policy = datastore.REFRESHASYNC
	return b
}

// Build constructs the backend via backendFactory and wraps it in a CachingWrapper.
func (b *PersistentDataStoreBuilder) Build(context subsystems.ClientContext) (interfaces.DataStore, error) {
	backend, err := b.backendFactory.Build(context)
	if err != nil {
		return nil, err
	}
	return datastore.NewCachingWrapper(backend, datastore.CacheTTL(b.cacheTTL), b.policy, context.Loggers), nil
}
