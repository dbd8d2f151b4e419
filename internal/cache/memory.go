package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps responses in process memory with expiry
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache; expired entries are purged every cleanupInterval
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		items: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get returns a copy-free view of the stored body
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.items.Get(key)
	if !found {
		return nil, false
	}
	body, ok := val.([]byte)
	return body, ok
}

// Set stores a body; a zero ttl uses the cache default
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, value, ttl)
	return nil
}
