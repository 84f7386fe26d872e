// Package ristretto is the in-process L1 byte cache. Prompt versions never
// change once created, so entries are evicted only by cost or TTL.
package ristretto

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a cost-bounded in-memory cache keyed by string.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a cache holding at most maxMB megabytes of values.
func New(maxMB int64) (*Cache, error) {
	if maxMB < 1 {
		maxMB = 1
	}
	maxCost := maxMB << 20
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost / 1024 * 10, // prompts average around 1 KiB
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{c: c}, nil
}

// Get implements cache.Cache.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	return val, found, nil
}

// Set implements cache.Cache. It returns once the value is applied, so a Get
// that follows sees it unless admission rejected the entry.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	c.c.Wait()
	return nil
}

// Delete implements cache.Cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() { c.c.Wait() }

// Close releases the cache goroutines.
func (c *Cache) Close() { c.c.Close() }
