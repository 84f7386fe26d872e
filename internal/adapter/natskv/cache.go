package natskv

import (
	"context"
	"errors"
	"time"

	"github.com/Strob0t/interviewlab/internal/domain"
)

// Cache is the L2 byte cache on a KV bucket. Expiry is the bucket's TTL, so
// the per-entry ttl argument is ignored.
type Cache struct {
	kv KeyValue
}

// NewCache creates a KV-backed cache.
func NewCache(kv KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Get implements cache.Cache.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set implements cache.Cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return c.kv.Put(ctx, key, value)
}

// Delete implements cache.Cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kv.Delete(ctx, key)
}
