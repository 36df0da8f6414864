package datastore

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldlog"
	"github.com/flagkit/flagkit-go/ldmodel"
)

// countingStore wraps an in-memory store and counts backend reads, optionally failing them, so
// tests can assert on cache coalescing/fallback behavior.
type countingStore struct {
	interfaces.DataStore
	getCalls int32
	failNext int32
}

func newCountingStore() *countingStore {
	return &countingStore{DataStore: NewMemoryStore()}
}

func (s *countingStore) Get(kind ldmodel.Kind, key string) (interfaces.ItemDescriptor, bool, error) {
	atomic.AddInt32(&s.getCalls, 1)
	if atomic.LoadInt32(&s.failNext) > 0 {
		atomic.AddInt32(&s.failNext, -1)
		return interfaces.ItemDescriptor{}, false, errors.New("backend unavailable")
	}
	return s.DataStore.Get(kind, key)
}

func TestCachingWrapperBypassWhenTTLZero(t *testing.T) {
	backend := newCountingStore()
	require.NoError(t, backend.Init(nil))
	_, _ = backend.Upsert(ldmodel.Features, "f", interfaces.ItemDescriptor{Version: 1, Item: "v1"})

	w := NewCachingWrapper(backend, CacheTTL(0), EVICT, ldlog.Loggers{})

	_, _, err := w.Get(ldmodel.Features, "f")
	require.NoError(t, err)
	_, _, err = w.Get(ldmodel.Features, "f")
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&backend.getCalls), "TTL=0 must bypass the cache entirely")
}

func TestCachingWrapperCachesWithinTTL(t *testing.T) {
	backend := newCountingStore()
	require.NoError(t, backend.Init(nil))
	_, _ = backend.Upsert(ldmodel.Features, "f", interfaces.ItemDescriptor{Version: 1, Item: "v1"})

	w := NewCachingWrapper(backend, CacheTTL(time.Minute), EVICT, ldlog.Loggers{})

	item1, ok, err := w.Get(ldmodel.Features, "f")
	require.NoError(t, err)
	assert.True(t, ok)
	item2, ok, err := w.Get(ldmodel.Features, "f")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, item1, item2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&backend.getCalls), "a second read within the TTL must be served from cache")
}

func TestCachingWrapperRefreshAsyncPolicyServesStaleOnBackendError(t *testing.T) {
	backend := newCountingStore()
	require.NoError(t, backend.Init(nil))
	_, _ = backend.Upsert(ldmodel.Features, "f", interfaces.ItemDescriptor{Version: 1, Item: "v1"})

	w := NewCachingWrapper(backend, CacheTTL(1*time.Millisecond), REFRESHASYNC, ldlog.Loggers{})

	item, ok, err := w.Get(ldmodel.Features, "f")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", item.Item)

	time.Sleep(5 * time.Millisecond)
	atomic.StoreInt32(&backend.failNext, 1)

	// REFRESH_ASYNC must return the previously cached item immediately, without surfacing the
	// background refresh's error.
	item, ok, err = w.Get(ldmodel.Features, "f")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", item.Item)
}

func TestCachingWrapperUpsertInvalidatesCache(t *testing.T) {
	backend := newCountingStore()
	require.NoError(t, backend.Init(nil))
	_, _ = backend.Upsert(ldmodel.Features, "f", interfaces.ItemDescriptor{Version: 1, Item: "v1"})

	w := NewCachingWrapper(backend, CacheTTL(time.Minute), EVICT, ldlog.Loggers{})

	_, _, err := w.Get(ldmodel.Features, "f")
	require.NoError(t, err)

	applied, err := w.Upsert(ldmodel.Features, "f", interfaces.ItemDescriptor{Version: 2, Item: "v2"})
	require.NoError(t, err)
	assert.True(t, applied)

	item, ok, err := w.Get(ldmodel.Features, "f")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", item.Item, "a write must invalidate the cached entry")
}
