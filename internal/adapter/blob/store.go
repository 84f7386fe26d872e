// Package blob implements the durable store backend on an eventually
// consistent blob service. Writes are durable at once but may stay invisible
// to listing for a while, so reads prefer a direct fetch and fall back to a
// bounded, cancellable lookup through the listing index.
package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/port/objectstore"
)

var errNotIndexed = errors.New("object not yet visible in listing")

// Options tunes the read path.
type Options struct {
	// RetryAttempts is the total number of indexed lookups per read.
	RetryAttempts int
	// RetryBaseDelay is the backoff unit: the wait before lookup n+1 is n units.
	RetryBaseDelay time.Duration
	// FetchConcurrency bounds parallel object fetches during List.
	FetchConcurrency int
	// EndpointTTL makes a cached base endpoint stale after this long; zero
	// keeps it for the life of the store.
	EndpointTTL time.Duration
	// OnLookup observes every indexed read: how many lookups ran and whether
	// the object was found.
	OnLookup func(ctx context.Context, attempts int, found bool)
}

// Store is the blob backend.
type Store struct {
	client   *Client
	opts     Options
	endpoint *endpointCache
}

// New creates a blob store over client.
func New(client *Client, opts Options) *Store {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = 1
	}
	return &Store{
		client:   client,
		opts:     opts,
		endpoint: &endpointCache{ttl: opts.EndpointTTL, now: time.Now},
	}
}

// Name implements objectstore.Backend.
func (s *Store) Name() string { return "blob" }

// Put writes through the API and learns the base endpoint from the result.
func (s *Store) Put(ctx context.Context, rec objectstore.Record) error {
	path := rec.Key.Path()
	obj, err := s.client.Put(ctx, path, rec.Data)
	if err != nil {
		return fmt.Errorf("blob: put %s: %w", path, err)
	}
	if _, ok := s.endpoint.get(); !ok {
		s.endpoint.learn(obj.URL)
	}
	return nil
}

// Get fetches directly when the base endpoint is known, then falls back to
// indexed lookups. A lookup that misses or fails in transport is retried with
// linear backoff until the attempt budget is spent, after which the record is
// reported not found. Cancelling ctx aborts the wait.
func (s *Store) Get(ctx context.Context, key objectstore.Key) ([]byte, error) {
	path := key.Path()

	if base, ok := s.endpoint.get(); ok {
		data, err := s.client.Fetch(ctx, base+"/"+path)
		if err == nil {
			return data, nil
		}
		slog.DebugContext(ctx, "blob: direct fetch missed", "path", path, "error", err)
	}

	var (
		data     []byte
		attempts int
	)
	backoff := retry.WithMaxRetries(uint64(s.opts.RetryAttempts-1), linearBackoff(s.opts.RetryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		obj, err := s.lookup(ctx, path)
		if err != nil {
			return retry.RetryableError(err)
		}
		s.endpoint.learn(obj.URL)
		d, err := s.client.Fetch(ctx, obj.URL)
		if err != nil {
			return retry.RetryableError(err)
		}
		data = d
		return nil
	})

	if s.opts.OnLookup != nil {
		s.opts.OnLookup(ctx, attempts, err == nil)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("blob: get %s: %w", path, ctxErr)
		}
		slog.DebugContext(ctx, "blob: lookup budget exhausted", "path", path, "attempts", attempts, "error", err)
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return data, nil
}

// lookup finds the object with exactly this pathname in the listing index.
func (s *Store) lookup(ctx context.Context, path string) (*Object, error) {
	objs, err := s.client.List(ctx, path)
	if err != nil {
		return nil, err
	}
	for i := range objs {
		if objs[i].Pathname == path {
			return &objs[i], nil
		}
	}
	return nil, errNotIndexed
}

// List enumerates the collection prefix and fetches every member in
// parallel. Members that fail to fetch are skipped.
func (s *Store) List(ctx context.Context, kind objectstore.Kind, scope string) ([]objectstore.Record, error) {
	prefix := objectstore.CollectionPrefix(kind, scope)
	objs, err := s.client.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("blob: list %s: %w", prefix, err)
	}

	type member struct {
		key objectstore.Key
		obj Object
	}
	members := make([]member, 0, len(objs))
	for _, obj := range objs {
		if key, ok := objectstore.ParsePath(kind, scope, obj.Pathname); ok {
			members = append(members, member{key: key, obj: obj})
		}
	}
	if len(members) > 0 {
		if _, ok := s.endpoint.get(); !ok {
			s.endpoint.learn(members[0].obj.URL)
		}
	}

	results := make([][]byte, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for i, m := range members {
		g.Go(func() error {
			data, err := s.client.Fetch(gctx, m.obj.URL)
			if err != nil {
				slog.WarnContext(ctx, "blob: skipping unreadable object", "path", m.obj.Pathname, "error", err)
				return nil
			}
			results[i] = data
			return nil
		})
	}
	_ = g.Wait()

	out := make([]objectstore.Record, 0, len(members))
	for i, m := range members {
		if results[i] == nil {
			continue
		}
		out = append(out, objectstore.Record{Key: m.key, Data: results[i], CreatedAt: m.obj.UploadedAt})
	}
	return out, nil
}

// Delete lists by exact pathname and removes every match.
func (s *Store) Delete(ctx context.Context, key objectstore.Key) error {
	path := key.Path()
	objs, err := s.client.List(ctx, path)
	if err != nil {
		return fmt.Errorf("blob: delete %s: list: %w", path, err)
	}
	var urls []string
	for _, obj := range objs {
		if obj.Pathname == path {
			urls = append(urls, obj.URL)
		}
	}
	if len(urls) == 0 {
		return nil
	}
	if err := s.client.Delete(ctx, urls); err != nil {
		return fmt.Errorf("blob: delete %s: %w", path, err)
	}
	return nil
}

// BaseEndpoint returns the cached base endpoint, if any.
func (s *Store) BaseEndpoint() (string, bool) {
	return s.endpoint.get()
}

// linearBackoff waits base, then 2*base, then 3*base and so on.
func linearBackoff(base time.Duration) retry.Backoff {
	var n int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * base, false
	})
}

// endpointCache holds the public base endpoint (scheme://host) objects are
// served from, plus when it was last refreshed.
type endpointCache struct {
	mu          sync.RWMutex
	base        string
	refreshedAt time.Time
	ttl         time.Duration
	now         func() time.Time
}

// get returns the base endpoint unless it is unknown or stale.
func (e *endpointCache) get() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.base == "" {
		return "", false
	}
	if e.ttl > 0 && e.now().Sub(e.refreshedAt) > e.ttl {
		return "", false
	}
	return e.base, true
}

// learn derives the base endpoint from an object URL.
func (e *endpointCache) learn(objectURL string) {
	u, err := url.Parse(objectURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return
	}
	e.mu.Lock()
	e.base = u.Scheme + "://" + u.Host
	e.refreshedAt = e.now()
	e.mu.Unlock()
}
