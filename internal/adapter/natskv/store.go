package natskv

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/interviewlab/internal/port/objectstore"
)

const indexPrefix = "idx."

// Store is the key-value backend. Every record lives under a value key
// ("runs.<id>", "prompts.agentA.<id>") and is listed through an index key
// ("idx." + value key) holding its creation time.
type Store struct {
	kv          KeyValue
	concurrency int
	now         func() time.Time
}

// NewStore creates a KV store backend. concurrency bounds parallel fetches
// during List.
func NewStore(kv KeyValue, concurrency int) *Store {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Store{kv: kv, concurrency: concurrency, now: time.Now}
}

// Name implements objectstore.Backend.
func (s *Store) Name() string { return "kv" }

func collectionKey(kind objectstore.Kind, scope string) string {
	if scope == "" {
		return string(kind) + "."
	}
	return string(kind) + "." + scope + "."
}

func valueKey(key objectstore.Key) string {
	return collectionKey(key.Kind, key.Scope) + key.ID
}

func indexKey(key objectstore.Key) string {
	return indexPrefix + valueKey(key)
}

// Put writes the value, then the index entry.
func (s *Store) Put(ctx context.Context, rec objectstore.Record) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	if err := s.kv.Put(ctx, valueKey(rec.Key), rec.Data); err != nil {
		return fmt.Errorf("kv: put %s: %w", valueKey(rec.Key), err)
	}
	stamp := []byte(created.UTC().Format(time.RFC3339Nano))
	if err := s.kv.Put(ctx, indexKey(rec.Key), stamp); err != nil {
		return fmt.Errorf("kv: index %s: %w", valueKey(rec.Key), err)
	}
	return nil
}

// Get implements objectstore.Backend.
func (s *Store) Get(ctx context.Context, key objectstore.Key) ([]byte, error) {
	data, err := s.kv.Get(ctx, valueKey(key))
	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", valueKey(key), err)
	}
	return data, nil
}

// List resolves the collection's index and fetches every member in parallel,
// newest first. Members whose value or index entry cannot be read are skipped.
func (s *Store) List(ctx context.Context, kind objectstore.Kind, scope string) ([]objectstore.Record, error) {
	prefix := indexPrefix + collectionKey(kind, scope)
	keys, err := s.kv.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("kv: list %s: %w", prefix, err)
	}

	var ids []string
	for _, k := range keys {
		id := strings.TrimPrefix(k, prefix)
		if id == "" || strings.Contains(id, ".") {
			continue
		}
		ids = append(ids, id)
	}

	results := make([]*objectstore.Record, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			key := objectstore.Key{Kind: kind, Scope: scope, ID: id}
			rec, err := s.fetchMember(gctx, key)
			if err != nil {
				slog.WarnContext(ctx, "kv: skipping unreadable record", "key", valueKey(key), "error", err)
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	out := make([]objectstore.Record, 0, len(ids))
	for _, rec := range results {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) fetchMember(ctx context.Context, key objectstore.Key) (*objectstore.Record, error) {
	stamp, err := s.kv.Get(ctx, indexKey(key))
	if err != nil {
		return nil, err
	}
	created, err := time.Parse(time.RFC3339Nano, string(stamp))
	if err != nil {
		return nil, fmt.Errorf("index timestamp: %w", err)
	}
	data, err := s.kv.Get(ctx, valueKey(key))
	if err != nil {
		return nil, err
	}
	return &objectstore.Record{Key: key, Data: data, CreatedAt: created}, nil
}

// Delete removes the value and its index entry.
func (s *Store) Delete(ctx context.Context, key objectstore.Key) error {
	if err := s.kv.Delete(ctx, valueKey(key)); err != nil {
		return fmt.Errorf("kv: delete %s: %w", valueKey(key), err)
	}
	if err := s.kv.Delete(ctx, indexKey(key)); err != nil {
		return fmt.Errorf("kv: delete index %s: %w", valueKey(key), err)
	}
	return nil
}
