package cache

import "time"

// LayeredCache checks memory before disk and promotes disk hits
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a memory cache in front of a disk cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 2*memoryTTL),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if body, found := c.memory.Get(key); found {
		return body, true
	}

	body, found := c.disk.Get(key)
	if !found {
		return nil, false
	}
	_ = c.memory.Set(key, body, 0)
	return body, true
}

// Set stores value in both layers. ttl bounds the memory copy only; the
// disk copy always lives for the disk TTL.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, 0)
}
