package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// MemoryCache is an in-process TTL cache bounded by payload bytes.
type MemoryCache struct {
	c *ristretto.Cache
}

// NewMemoryCache creates a cache holding at most maxBytes of payloads.
func NewMemoryCache(maxBytes int64) (*MemoryCache, error) {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	return &MemoryCache{c: c}, nil
}

// Get returns the payload under key.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

// Set stores value under key for ttl. Writes are made visible before Set
// returns; ristretto may still reject an entry under memory pressure.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.c.SetWithTTL(key, value, int64(len(value)), ttl)
	m.c.Wait()
	return nil
}

// Close stops the cache's background goroutines.
func (m *MemoryCache) Close() {
	m.c.Close()
}
