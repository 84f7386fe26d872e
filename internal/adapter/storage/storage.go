// Package storage picks and opens the durable store backend from
// configuration. The first configured backend wins: kv, then blob, then local.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/interviewlab/internal/adapter/blob"
	"github.com/Strob0t/interviewlab/internal/adapter/localfs"
	"github.com/Strob0t/interviewlab/internal/adapter/natskv"
	"github.com/Strob0t/interviewlab/internal/config"
	"github.com/Strob0t/interviewlab/internal/port/objectstore"
	"github.com/Strob0t/interviewlab/internal/resilience"
)

// Kind names a backend.
type Kind string

const (
	KindKV    Kind = "kv"
	KindBlob  Kind = "blob"
	KindLocal Kind = "local"
)

// Select reports which backend cfg configures.
func Select(cfg config.Storage) Kind {
	switch {
	case cfg.KV.URL != "":
		return KindKV
	case cfg.Blob.Token != "":
		return KindBlob
	default:
		return KindLocal
	}
}

// Options carries hooks that outlive configuration.
type Options struct {
	// OnBlobLookup observes indexed reads of the blob backend.
	OnBlobLookup func(ctx context.Context, attempts int, found bool)
}

// Opened is a ready backend plus the resources it holds.
type Opened struct {
	Kind    Kind
	Backend objectstore.Backend
	// NATS is set for the kv backend so callers can bind further buckets.
	NATS *natskv.Conn
}

// Close releases connections held by the backend.
func (o *Opened) Close() error {
	if o.NATS != nil {
		return o.NATS.Close()
	}
	return nil
}

// Open creates the backend cfg selects.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Opened, error) {
	kind := Select(cfg.Storage)
	switch kind {
	case KindKV:
		conn, err := natskv.Connect(cfg.Storage.KV.URL)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		bucket, err := conn.Bucket(ctx, cfg.Storage.KV.Bucket, 0)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("storage: %w", err)
		}
		slog.Info("storage backend selected", "backend", kind, "bucket", cfg.Storage.KV.Bucket)
		return &Opened{
			Kind:    kind,
			Backend: natskv.NewStore(bucket, cfg.Storage.KV.FetchConcurrency),
			NATS:    conn,
		}, nil

	case KindBlob:
		b := cfg.Storage.Blob
		client := blob.NewClient(b.APIURL, b.Token, b.Timeout)
		client.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout, resilience.WithIgnore(blob.IsMissing)))
		slog.Info("storage backend selected", "backend", kind, "api", b.APIURL)
		return &Opened{
			Kind:    kind,
			Backend: blob.New(client, blobOptions(b, opts)),
		}, nil

	default:
		store, err := localfs.New(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		slog.Info("storage backend selected", "backend", kind, "dir", cfg.Storage.Dir)
		return &Opened{Kind: kind, Backend: store}, nil
	}
}

func blobOptions(b config.Blob, opts Options) blob.Options {
	return blob.Options{
		RetryAttempts:    b.RetryAttempts,
		RetryBaseDelay:   b.RetryBaseDelay,
		FetchConcurrency: b.FetchConcurrency,
		EndpointTTL:      b.EndpointTTL,
		OnLookup:         opts.OnBlobLookup,
	}
}
