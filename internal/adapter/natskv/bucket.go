// Package natskv implements the key-value store backend and the L2 byte
// cache on NATS JetStream KV buckets.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/interviewlab/internal/domain"
)

// KeyValue is the slice of a KV bucket the store and cache need. Get reports
// an absent key with an error wrapping domain.ErrNotFound.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Conn is a JetStream connection that hands out buckets.
type Conn struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and initializes JetStream.
func Connect(url string) (*Conn, error) {
	nc, err := nats.Connect(url, nats.Name("interviewlab"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}
	slog.Info("nats connected", "url", url)
	return &Conn{nc: nc, js: js}, nil
}

// Bucket creates or binds the named bucket. A positive ttl expires entries.
func (c *Conn) Bucket(ctx context.Context, name string, ttl time.Duration) (*Bucket, error) {
	kv, err := c.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: name,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("jetstream kv %s: %w", name, err)
	}
	return &Bucket{kv: kv}, nil
}

// Close drains the connection.
func (c *Conn) Close() error {
	if err := c.nc.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// Bucket adapts a jetstream.KeyValue to KeyValue.
type Bucket struct {
	kv jetstream.KeyValue
}

// Get returns the latest value of key.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("kv key %s: %w", key, domain.ErrNotFound)
		}
		return nil, err
	}
	return entry.Value(), nil
}

// Put stores value under key.
func (b *Bucket) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Put(ctx, key, value)
	return err
}

// Delete removes key. Deleting an absent key is not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	err := b.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Keys returns every live key starting with prefix. A prefix that ends on a
// token boundary is filtered by the server; anything else is filtered here.
func (b *Bucket) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		lister jetstream.KeyLister
		err    error
	)
	if filter, ok := subjectFilter(prefix); ok {
		lister, err = b.kv.ListKeysFiltered(ctx, filter)
	} else {
		lister, err = b.kv.ListKeys(ctx)
	}
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// subjectFilter turns a key prefix ending in "." into a wildcard filter
// matching every key below it.
func subjectFilter(prefix string) (string, bool) {
	if prefix == "" || !strings.HasSuffix(prefix, ".") {
		return "", false
	}
	return prefix + ">", true
}
