package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/require"
)

func TestBucketExhaustsExactlyAtCapacity(t *testing.T) {
	r := NewRegistry(5, 5, time.Minute)
	b := r.GetOrCreate("client-a")

	for i := 0; i < 5; i++ {
		require.True(t, b.TryConsume(1), "consumption %d should succeed", i+1)
	}
	require.False(t, b.TryConsume(1), "consumption beyond capacity must fail")
	require.GreaterOrEqual(t, b.Tokens(), int64(0))
}

func TestBucketTokensNeverExceedCapacity(t *testing.T) {
	now := time.Now()
	b := newBucket(3, 10, time.Second, now)

	// A long idle period refills many intervals but must clamp at capacity.
	require.True(t, b.tryConsumeAt(1, now.Add(time.Hour)))
	b.mu.Lock()
	tokens := b.tokens
	b.mu.Unlock()
	require.LessOrEqual(t, tokens, int64(3))
	require.GreaterOrEqual(t, tokens, int64(0))
}

func TestBucketIntervalRefill(t *testing.T) {
	now := time.Now()
	b := newBucket(4, 2, 10*time.Second, now)

	for i := 0; i < 4; i++ {
		require.True(t, b.tryConsumeAt(1, now))
	}
	require.False(t, b.tryConsumeAt(1, now))

	// Half an interval elapsed: still empty.
	require.False(t, b.tryConsumeAt(1, now.Add(5*time.Second)))

	// One full interval elapsed: exactly refillTokens available.
	at := now.Add(10 * time.Second)
	require.True(t, b.tryConsumeAt(1, at))
	require.True(t, b.tryConsumeAt(1, at))
	require.False(t, b.tryConsumeAt(1, at))
}

func TestGetOrCreateReturnsSameBucketConcurrently(t *testing.T) {
	r := NewRegistry(10, 10, time.Minute)

	const workers = 64
	buckets := make([]*Bucket, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buckets[i] = r.GetOrCreate("shared-identity")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		require.Same(t, buckets[0], buckets[i])
	}
}

func TestBucketsAreIndependentPerIdentity(t *testing.T) {
	r := NewRegistry(1, 1, time.Minute)

	require.True(t, r.GetOrCreate("a").TryConsume(1))
	require.False(t, r.GetOrCreate("a").TryConsume(1))
	// Exhausting "a" must not affect "b".
	require.True(t, r.GetOrCreate("b").TryConsume(1))
}

func TestMiddlewareTerminatesWhenExhausted(t *testing.T) {
	e := echo.New()
	e.Use(NewRegistry(1, 1, time.Minute).Middleware())

	handlerCalls := 0
	e.GET("/ping", func(c *echo.Context) error {
		handlerCalls++
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-API-Key", "client-key")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := do()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, handlerCalls)

	rec = do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, 1, handlerCalls, "handler must not run after termination")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "Rate limit exceeded. Please try again later.", body["message"])
}

func TestIdentityFallsBackToRemoteIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4411"
	require.Equal(t, "203.0.113.7", identityOf(req))

	req.Header.Set("X-API-Key", "the-key")
	require.Equal(t, "the-key", identityOf(req))
}
