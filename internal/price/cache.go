package price

import (
	"sync"
	"time"

	"github.com/mtlprog/wealth/internal/domain"
)

const defaultCacheTTL = 30 * time.Second

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache keeps provider answers for a short time so repeated refreshes stay under rate limits.
type ttlCache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry[V]
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ttlCache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry[V]),
	}
}

// quoteKey formats: "{category}:{SYMBOL}" e.g. "stock:2330"
func quoteKey(a domain.Asset) string {
	return a.Key()
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}
