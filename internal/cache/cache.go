// Package cache stores raw responses of the OSM services between lookups.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/osmlookup/internal/model"
)

// Cache stores response bodies by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
}

// Key derives a cache key from a request URL
func Key(requestURL string) string {
	hash := sha256.Sum256([]byte(requestURL))
	return "osmlookup:v1:" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. A disabled cache is a no-op,
// an empty disk directory keeps entries in memory only.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Noop{}
	}
	if cfg.DiskDir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 2*cfg.MemoryTTL)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL)
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(string) ([]byte, bool) { return nil, false }
func (Noop) Set(string, []byte, time.Duration) error { return nil }
