package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Store is a TTL key/value store. Get reports found=false for missing or
// expired keys. Implementations are safe for concurrent use; last write wins.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Cache is a typed JSON view over a Store.
type Cache[T any] struct {
	store  Store
	prefix string
}

// New wraps store; prefix namespaces the keys of this value type.
func New[T any](store Store, prefix string) *Cache[T] {
	return &Cache[T]{store: store, prefix: prefix}
}

// Get returns the cached value. Backend and decode errors are logged and
// reported as a miss.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, ok, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		log.Printf("[WARN] cache get %s%s: %v", c.prefix, key, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Printf("[WARN] cache decode %s%s: %v", c.prefix, key, err)
		return zero, false
	}
	return v, true
}

// Set stores v under key for ttl.
func (c *Cache[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.prefix+key, raw, ttl)
}
