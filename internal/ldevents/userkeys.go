package ldevents

import (
	"time"

	"github.com/launchdarkly/ccache"
)

// userKeyCache is the "seen recently" set described in spec.md 4.5: a capacity-bounded,
// most-recently-used-wins cache of user keys, periodically cleared on a timer. It is grounded on
// launchdarkly-go-server-sdk/ldevents's lruCache (whose source was absent from the retrieval pack,
// only lru_cache_test.go survived) and backed by github.com/launchdarkly/ccache, whose add/touch/
// evict semantics satisfy the same contract that test file pins down.
type userKeyCache struct {
	cache *ccache.Cache
}

// noExpiration is large enough that entries never expire on their own; eviction happens only by
// capacity (LRU) or by an explicit clear() on the reset ticker.
const noExpiration = 24 * time.Hour

func newUserKeyCache(capacity int) *userKeyCache {
	if capacity <= 0 {
		capacity = DefaultUserKeysCapacity
	}
	return &userKeyCache{cache: ccache.New(ccache.Configure().MaxSize(int64(capacity)))}
}

// noticeUser records key as seen and reports whether it was already present. A present entry has
// its recency refreshed so capacity-driven eviction favors the least recently referenced user.
func (c *userKeyCache) noticeUser(key string) bool {
	if item := c.cache.Get(key); item != nil && !item.Expired() {
		c.cache.Set(key, true, noExpiration)
		return true
	}
	c.cache.Set(key, true, noExpiration)
	return false
}

func (c *userKeyCache) clear() {
	c.cache.Clear()
}
