package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a per-client token bucket. It guards the routes that call
// the language model, where every request costs money.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*tokenBucket
	rate       float64 // tokens per second
	burst      float64
	maxClients int
	now        func() time.Time
}

type tokenBucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter allows rate requests per second per client with bursts of
// up to burst requests.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients:    make(map[string]*tokenBucket),
		rate:       rate,
		burst:      float64(burst),
		maxClients: 10000,
		now:        time.Now,
	}
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wait, ok := rl.take(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// take spends one token of client, or reports how long until one is available.
func (rl *RateLimiter) take(client string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[client]
	if !ok {
		if len(rl.clients) >= rl.maxClients {
			rl.evictIdle(now)
		}
		b = &tokenBucket{tokens: rl.burst, last: now}
		rl.clients[client] = b
	}

	b.tokens = math.Min(rl.burst, b.tokens+now.Sub(b.last).Seconds()*rl.rate)
	b.last = now
	if b.tokens < 1 {
		return time.Duration((1 - b.tokens) / rl.rate * float64(time.Second)), false
	}
	b.tokens--
	return 0, true
}

// evictIdle drops buckets that have refilled completely; they carry no state.
func (rl *RateLimiter) evictIdle(now time.Time) {
	full := time.Duration(rl.burst / rl.rate * float64(time.Second))
	for client, b := range rl.clients {
		if now.Sub(b.last) >= full {
			delete(rl.clients, client)
		}
	}
}

// Run evicts idle buckets every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			rl.evictIdle(rl.now())
			rl.mu.Unlock()
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// clientIP returns the host part of RemoteAddr. Mount chi's RealIP first when
// running behind a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
