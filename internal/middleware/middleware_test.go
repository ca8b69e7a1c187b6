package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/elder-health-text/internal/config"
)

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "203.0.113.7:4321"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucketLocalFallback(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
		LocalFallback:  true,
	}
	e := echo.New()
	e.POST("/detect", okHandler, NewTokenBucket(cfg, nil))
	e.POST("/simplify", okHandler, NewTokenBucket(cfg, nil))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/detect", "{}").Code)
	rec := serve(e, http.MethodPost, "/detect", "{}")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodPost, "/detect", "{}")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too_many_requests")

	// a different route has its own bucket
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/simplify", "{}").Code)
}

func TestTokenBucketSharesVersionedRoute(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 5 * time.Hour, Prefix: "rl", LocalFallback: true,
	}
	mw := NewTokenBucket(cfg, nil)
	e := echo.New()
	e.POST("/simplify", okHandler, mw)
	e.POST("/v1/simplify", okHandler, mw)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/simplify", "{}").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/v1/simplify", "{}").Code)
}

func TestBucketRoute(t *testing.T) {
	assert.Equal(t, "/simplify", bucketRoute("/v1/simplify"))
	assert.Equal(t, "/detect", bucketRoute("/detect"))
	assert.Equal(t, "/v10/detect", bucketRoute("/v10/detect"))
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	e := echo.New()
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: false, Capacity: 1}, nil)
	e.POST("/detect", okHandler, mw)
	for i := 0; i < 5; i++ {
		rec := serve(e, http.MethodPost, "/detect", "{}")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestLocalLimiterRefills(t *testing.T) {
	l := newLocalLimiter(config.RateLimitConfig{
		Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute,
	})
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.take("k", now).allowed)
	d := l.take("k", now)
	assert.False(t, d.allowed)
	assert.InDelta(t, time.Second.Seconds(), d.retry.Seconds(), 0.01)
	assert.True(t, l.take("k", now.Add(time.Second)).allowed)
}

func TestLocalLimiterSweepsIdleKeys(t *testing.T) {
	l := newLocalLimiter(config.RateLimitConfig{
		Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute,
	})
	now := time.Unix(1_700_000_000, 0)
	l.take("a", now)
	l.take("b", now.Add(2*time.Minute))
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "a")
	assert.Contains(t, l.buckets, "b")
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = RequestIDFrom(c)
		return c.NoContent(http.StatusNoContent)
	})

	rec := serve(e, http.MethodGet, "/", "")
	require.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "caller-supplied")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied", seen)
}

func TestCacheKeyFromBody(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_body"}
	e := echo.New()
	keyFor := func(path, body string) string {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath(path)
		return cacheKeyFrom(cfg, c, []byte(body))
	}

	a := keyFor("/simplify", `{"text":"BID"}`)
	assert.True(t, strings.HasPrefix(a, "cache:"))
	assert.Equal(t, a, keyFor("/simplify", `{"text":"BID"}`))
	assert.NotEqual(t, a, keyFor("/simplify", `{"text":"TID"}`))
	assert.NotEqual(t, a, keyFor("/detect", `{"text":"BID"}`))
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"label":"Safe"}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"label":"Safe"}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	e := echo.New()
	e.POST("/detect", okHandler, NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"POST": true}}, nil))
	rec := serve(e, http.MethodPost, "/detect", `{"text":"x"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
