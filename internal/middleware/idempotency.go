package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/interviewlab/internal/port/cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 128
	maxIdempotencyBody   = 1 << 20
)

// idempotencyEntry is a captured response.
type idempotencyEntry struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Idempotency deduplicates POST requests that carry an Idempotency-Key
// header. The first response below 500 is stored in c for ttl and replayed
// for repeats; concurrent repeats wait for the first one instead of running
// the handler again. Mount it on routes that append turns so a retried
// request cannot add a second exchange.
func Idempotency(c cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	var group singleflight.Group
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(headerIdempotencyKey)
			if r.Method != http.MethodPost || key == "" || len(key) > maxIdempotencyKeyLen {
				next.ServeHTTP(w, r)
				return
			}
			cacheKey := idempotencyCacheKey(r.URL.Path, key)

			if data, ok, err := c.Get(r.Context(), cacheKey); err == nil && ok {
				var cached idempotencyEntry
				if err := sonic.ConfigStd.Unmarshal(data, &cached); err == nil {
					cached.replay(w, true)
					return
				}
				slog.WarnContext(r.Context(), "idempotency: corrupt cache entry", "key", key)
			}

			v, _, shared := group.Do(cacheKey, func() (any, error) {
				rec := &bufferedWriter{header: make(http.Header), status: http.StatusOK}
				next.ServeHTTP(rec, r)
				entry := &idempotencyEntry{Status: rec.status, Header: rec.header, Body: rec.body.Bytes()}

				if entry.Status < http.StatusInternalServerError && len(entry.Body) <= maxIdempotencyBody {
					if data, err := sonic.ConfigStd.Marshal(entry); err == nil {
						if err := c.Set(r.Context(), cacheKey, data, ttl); err != nil {
							slog.WarnContext(r.Context(), "idempotency: store response failed", "key", key, "error", err)
						}
					}
				}
				return entry, nil
			})
			v.(*idempotencyEntry).replay(w, shared)
		})
	}
}

// idempotencyCacheKey hashes the client key so arbitrary header values stay
// valid as KV bucket keys.
func idempotencyCacheKey(path, key string) string {
	sum := sha256.Sum256([]byte(path + "\x00" + key))
	return "idem." + hex.EncodeToString(sum[:])
}

func (e *idempotencyEntry) replay(w http.ResponseWriter, replayed bool) {
	for k, vals := range e.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	if replayed {
		w.Header().Set(headerReplayed, "true")
	}
	w.WriteHeader(e.Status)
	_, _ = w.Write(e.Body)
}

// bufferedWriter captures a response so it can be written to every waiting
// caller.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
	wrote  bool
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if !b.wrote {
		b.status = code
		b.wrote = true
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wrote = true
	return b.body.Write(p)
}
