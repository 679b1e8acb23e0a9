package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// AvailabilityCache is a small TTL cache for calendar availability
// reads. Availability tolerates short staleness; voucher balances are
// never cached here.
type AvailabilityCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	store map[string]entry
}

func NewAvailabilityCache(ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{
		ttl:   ttl,
		store: make(map[string]entry),
	}
}

func (c *AvailabilityCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *AvailabilityCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}
