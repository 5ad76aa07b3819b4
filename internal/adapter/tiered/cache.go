// Package tiered implements a two-level (L1 + L2) cache adapter.
package tiered

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Strob0t/PromptForge/internal/port/cache"
)

// Cache combines an in-process L1 with a remote L2 shared between console
// instances. Get checks L1 first, then L2 (backfilling L1 on an L2 hit).
// L1 entries never outlive l1Expire, which bounds how long one instance
// can serve a list another instance already invalidated.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
	log      *slog.Logger
}

// New creates a tiered cache with the given L1 and L2 backends.
func New(l1, l2 cache.Cache, l1Expire time.Duration, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire, log: log}
}

// Get checks L1, then L2. An unreachable L2 is reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		c.log.Warn("l2 cache get", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	_ = c.l1.Set(ctx, key, val, c.l1Expire)
	return val, true, nil
}

// Set writes to both levels.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l1TTL := ttl
	if c.l1Expire > 0 && (l1TTL <= 0 || l1TTL > c.l1Expire) {
		l1TTL = c.l1Expire
	}
	if err := c.l1.Set(ctx, key, value, l1TTL); err != nil {
		return err
	}
	return c.l2.Set(ctx, key, value, ttl)
}

// Delete removes the key from both levels, attempting L2 even when L1
// fails.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.l1.Delete(ctx, key), c.l2.Delete(ctx, key))
}
