// Package natskv implements the cache port on a NATS JetStream key-value
// bucket, shared by every console instance connected to the same server.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache wraps a JetStream KeyValue bucket. Entries expire with the bucket
// TTL; the per-call ttl is ignored.
type Cache struct {
	kv jetstream.KeyValue
}

// New creates a cache over an existing bucket.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Open creates or updates the bucket and returns a cache over it.
func Open(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (*Cache, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "prompt list snapshots",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}
	return New(kv), nil
}

// Key names may not contain ':'; the port uses it as a namespace separator.
func kvKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

// Get retrieves a value. A missing or deleted key is a miss.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Set stores a value.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, kvKey(key), value)
	return err
}

// Delete removes a value. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
