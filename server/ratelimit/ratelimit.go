// Package ratelimit implements the per-identity token-bucket gate, the second
// stage of the request admission pipeline.
package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/ragchat/ragchat/server/auth"
)

const exceededMessage = "Rate limit exceeded. Please try again later."

// Bucket holds the token-bucket state for one client identity. Tokens are
// replenished in whole refill intervals, never beyond capacity.
type Bucket struct {
	mu             sync.Mutex
	capacity       int64
	tokens         int64
	refillTokens   int64
	refillInterval time.Duration
	lastRefill     time.Time
}

func newBucket(capacity, refillTokens int64, refillInterval time.Duration, now time.Time) *Bucket {
	return &Bucket{
		capacity:       capacity,
		tokens:         capacity,
		refillTokens:   refillTokens,
		refillInterval: refillInterval,
		lastRefill:     now,
	}
}

// TryConsume takes n tokens if available. Refill and consumption happen
// atomically with respect to other consumers of this bucket.
func (b *Bucket) TryConsume(n int64) bool {
	return b.tryConsumeAt(n, time.Now())
}

func (b *Bucket) tryConsumeAt(n int64, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

func (b *Bucket) refill(now time.Time) {
	intervals := int64(now.Sub(b.lastRefill) / b.refillInterval)
	if intervals <= 0 {
		return
	}
	b.tokens += intervals * b.refillTokens
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * b.refillInterval)
}

// Tokens reports the current token count after refill.
func (b *Bucket) Tokens() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(time.Now())
	return b.tokens
}

// Registry maintains one bucket per client identity, created lazily on first
// use. Bucket parameters are fixed process-wide.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket

	capacity       int64
	refillTokens   int64
	refillInterval time.Duration
}

func NewRegistry(capacity, refillTokens int64, refillInterval time.Duration) *Registry {
	return &Registry{
		buckets:        make(map[string]*Bucket),
		capacity:       capacity,
		refillTokens:   refillTokens,
		refillInterval: refillInterval,
	}
}

// GetOrCreate returns the bucket for identity, creating it at most once even
// under concurrent first access.
func (r *Registry) GetOrCreate(identity string) *Bucket {
	r.mu.RLock()
	b, ok := r.buckets[identity]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[identity]; ok {
		return b
	}
	b = newBucket(r.capacity, r.refillTokens, r.refillInterval, time.Now())
	r.buckets[identity] = b
	return b
}

// Middleware consumes one token per request from the caller's bucket and
// terminates the request with 429 when the bucket is empty.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			identity := identityOf(c.Request())
			if !r.GetOrCreate(identity).TryConsume(1) {
				slog.Warn("rate limit exceeded", "identity", identity)
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"success": false,
					"message": exceededMessage,
				})
			}
			return next(c)
		}
	}
}

// identityOf keys the bucket by API key when present, else by remote IP.
func identityOf(req *http.Request) string {
	if key := req.Header.Get(auth.HeaderAPIKey); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
