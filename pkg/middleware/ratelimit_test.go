package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_TokenBucket(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute, BurstSize: 1})
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}
	allowed, _ := rl.Allow(ctx, "ip:1.2.3.4")
	assert.False(t, allowed)

	allowed, _ = rl.Allow(ctx, "ip:5.6.7.8")
	assert.True(t, allowed, "keys are independent")

	// Half a window refills one token
	now = now.Add(30 * time.Second)
	allowed, _ = rl.Allow(ctx, "ip:1.2.3.4")
	assert.True(t, allowed)
	allowed, _ = rl.Allow(ctx, "ip:1.2.3.4")
	assert.False(t, allowed)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Second})
	rl.now = func() time.Time { return now }

	_, _ = rl.Allow(context.Background(), "a")
	now = now.Add(3 * time.Second)
	rl.Cleanup()
	assert.Empty(t, rl.buckets)
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestDistributedRateLimiter(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredisClient(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}, "test")

	for i := 0; i < 2; i++ {
		allowed, err := rl.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)

	ttl, err := rl.TTL(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute + time.Second)
	allowed, err = rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed, "window resets after expiry")

	require.NoError(t, rl.Reset(ctx, "ip:1.2.3.4"))
	assert.False(t, mr.Exists("test:ip:1.2.3.4"))
	assert.NoError(t, rl.HealthCheck(ctx))
}

func TestDistributedRateLimiter_FailsOpen(t *testing.T) {
	mr, client := newMiniredisClient(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}, "")
	mr.Close()

	allowed, err := rl.Allow(context.Background(), "ip:1.2.3.4")
	assert.Error(t, err)
	assert.True(t, allowed)

	handler := NewRateLimitMiddleware(rl, nil, "public").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/interview/abc", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
	handler := NewRateLimitMiddleware(rl, nil, "public").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/study/acme/start", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("1.1.1.1:4000").Code)

	rec := send("1.1.1.1:4001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Rate limit exceeded", detail(t, rec))

	assert.Equal(t, http.StatusOK, send("2.2.2.2:4000").Code)
}

func TestRateLimitMiddleware_IgnoresSpoofedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
	handler := NewRateLimitMiddleware(rl, nil, "public").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/interview/abc", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestRateLimitMiddleware_TrustedProxyRotation(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	rl := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute, TrustedProxies: trusted})
	handler := NewRateLimitMiddleware(rl, nil, "public").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// The client controls everything left of the hop the proxy appended
	send := func(spoofed string) int {
		req := httptest.NewRequest(http.MethodGet, "/interview/abc", nil)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", spoofed+", 203.0.113.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.2"))
}

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "172.16.0.7"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		trusted  []netip.Prefix
		expected string
	}{
		{name: "untrusted peer ignores forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, remote: "192.0.2.1:1234", trusted: trusted, expected: "192.0.2.1"},
		{name: "no trusted proxies configured", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, remote: "10.0.0.1:1234", expected: "10.0.0.1"},
		{name: "right-most untrusted hop", headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.5, 172.16.0.7"}, remote: "10.0.0.1:1234", trusted: trusted, expected: "203.0.113.5"},
		{name: "real ip from trusted peer", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remote: "10.0.0.1:1234", trusted: trusted, expected: "198.51.100.2"},
		{name: "trusted peer without headers", remote: "10.0.0.1:1234", trusted: trusted, expected: "10.0.0.1"},
		{name: "remote without port", remote: "192.0.2.1", expected: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, clientIP(req, tt.trusted))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies([]string{"10.1.2.3/8", " 192.0.2.1 ", ""})
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.1/32", prefixes[1].String())

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}
