// Package ristretto implements the cache port with an in-process
// dgraph-io/ristretto cache holding backend list snapshots.
package ristretto

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// Cache wraps a ristretto cache.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a ristretto-backed cache bounded to maxSizeMB megabytes of
// cached values.
func New(maxSizeMB int64) (*Cache, error) {
	if maxSizeMB < 1 {
		return nil, errors.New("ristretto: max size must be >= 1 MB")
	}
	maxCost := maxSizeMB << 20
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters:        maxCost / 1024 * 10, // ~10x expected items of ~1KB
		MaxCost:            maxCost,
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value with the given TTL. The write is visible to the next
// Get once Set returns.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	c.c.Wait()
	return nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	c.c.Wait()
	return nil
}

// Stats returns hit and miss counters since creation.
func (c *Cache) Stats() Stats {
	m := c.c.Metrics
	return Stats{Hits: m.Hits(), Misses: m.Misses(), HitRatio: m.Ratio()}
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
