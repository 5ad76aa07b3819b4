// Package cache defines the port interface for caching.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache is the port interface for key-value caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GetJSON reads key and decodes it into a T. A value that no longer
// decodes is reported as a miss.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool, error) {
	var v T
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, nil
	}
	return v, true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}
