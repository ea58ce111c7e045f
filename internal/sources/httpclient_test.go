package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetryConfig keeps backoff negligible so retry tests stay quick.
func fastRetryConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:    5 * time.Second,
		RateLimit:  1000,
		BurstSize:  1000,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		c := NewHTTPClient(fastRetryConfig())
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("retries on 429 then succeeds", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		c := NewHTTPClient(fastRetryConfig())
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("honors Retry-After seconds", func(t *testing.T) {
		var calls int32
		var firstCall, secondCall time.Time
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				firstCall = time.Now()
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			secondCall = time.Now()
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		c := NewHTTPClient(fastRetryConfig())
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.GreaterOrEqual(t, secondCall.Sub(firstCall), time.Second)
	})

	t.Run("does not retry other error statuses", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewHTTPClient(fastRetryConfig())
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		// Error statuses are the caller's problem; Do returns the response.
		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("exhausts retries on persistent 429", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewHTTPClient(fastRetryConfig())
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		_, err = c.Do(req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max retries exhausted")
		// MaxRetries of 2 means 3 attempts total.
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("sets user agent and api key headers", func(t *testing.T) {
		var gotUA, gotKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotKey = r.Header.Get("x-api-key")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		cfg := fastRetryConfig()
		cfg.UserAgent = "papertrail-test/1.0"
		cfg.APIKey = "secret"
		cfg.APIKeyHeader = "x-api-key"
		c := NewHTTPClient(cfg)

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "papertrail-test/1.0", gotUA)
		assert.Equal(t, "secret", gotKey)
	})

	t.Run("context cancellation stops retries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewHTTPClient(fastRetryConfig())
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		start := time.Now()
		_, err = c.Do(req)
		require.Error(t, err)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestHTTPClient_BackoffDelay(t *testing.T) {
	c := NewHTTPClient(HTTPClientConfig{
		RetryDelay:      100 * time.Millisecond,
		RetryMultiplier: 2,
	})

	assert.Equal(t, 100*time.Millisecond, c.backoffDelay(0))
	assert.Equal(t, 200*time.Millisecond, c.backoffDelay(1))
	assert.Equal(t, 400*time.Millisecond, c.backoffDelay(2))
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows burst then throttles", func(t *testing.T) {
		rl := NewRateLimiter(1, 2)

		assert.True(t, rl.Allow())
		assert.True(t, rl.Allow())
		assert.False(t, rl.Allow())
	})

	t.Run("wait respects context", func(t *testing.T) {
		rl := NewRateLimiter(0.001, 1)
		require.NoError(t, rl.Wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.Error(t, rl.Wait(ctx))
	})

	t.Run("set rate updates budget", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		rl.SetRate(100)
		assert.True(t, rl.Allow())
	})
}
