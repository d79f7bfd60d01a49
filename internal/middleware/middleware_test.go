package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/cinema-box-office/internal/config"
	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/pkg/metrics"
	"github.com/iliyamo/cinema-box-office/internal/session"
)

func redisOrSkip(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skip("Redis not available")
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Get()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })
	return logs
}

func whoami(c echo.Context) error {
	return c.String(http.StatusOK, SessionID(c))
}

func TestSession(t *testing.T) {
	iss := session.NewIssuer("test-secret", time.Hour)
	e := echo.New()
	e.Use(Session(iss))
	e.GET("/whoami", whoami)

	t.Run("issues a session when none is presented", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		sid := rec.Body.String()
		_, err := uuid.Parse(sid)
		require.NoError(t, err)

		raw := rec.Header().Get(SessionHeader)
		require.NotEmpty(t, raw)
		parsed, err := iss.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, sid, parsed)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookie, cookies[0].Name)
		assert.Equal(t, raw, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("keeps the session from the header", func(t *testing.T) {
		tok, err := iss.Issue()
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(SessionHeader, tok.Raw)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, tok.SessionID, rec.Body.String())
		assert.Empty(t, rec.Header().Get(SessionHeader))
	})

	t.Run("keeps the session from the cookie", func(t *testing.T) {
		tok, err := iss.Issue()
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok.Raw})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, tok.SessionID, rec.Body.String())
	})

	upgrade := func(target string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		return req
	}

	t.Run("keeps the session from the query on websocket upgrades", func(t *testing.T) {
		tab, err := iss.Issue()
		require.NoError(t, err)
		shared, err := iss.Issue()
		require.NoError(t, err)

		req := upgrade("/whoami?" + SessionQueryParam + "=" + tab.Raw)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: shared.Raw})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, tab.SessionID, rec.Body.String())
		assert.Empty(t, rec.Header().Get(SessionHeader))
	})

	t.Run("an invalid query token falls back to the cookie", func(t *testing.T) {
		shared, err := iss.Issue()
		require.NoError(t, err)

		req := upgrade("/whoami?" + SessionQueryParam + "=garbage")
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: shared.Raw})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, shared.SessionID, rec.Body.String())
	})

	t.Run("ignores the query token on plain requests", func(t *testing.T) {
		tok, err := iss.Issue()
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami?"+SessionQueryParam+"="+tok.Raw, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.NotEqual(t, tok.SessionID, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(SessionHeader))
	})

	t.Run("replaces a token signed with another key", func(t *testing.T) {
		other, err := session.NewIssuer("other-secret", time.Hour).Issue()
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(SessionHeader, other.Raw)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.NotEqual(t, other.SessionID, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(SessionHeader))
	})
}

func TestSessionIDWithoutMiddleware(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "", SessionID(c))

	SetSessionID(c, "abc")
	assert.Equal(t, "abc", SessionID(c))
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/showtimes/10/locks", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/showtimes/:id/locks")
	SetSessionID(c, "s1")

	cases := map[string]string{
		"ip":            "rl:ip:10.0.0.1",
		"session":       "rl:session:s1",
		"ip_route":      "rl:ip:10.0.0.1:route:POST /v1/showtimes/:id/locks",
		"session_route": "rl:session:s1:route:POST /v1/showtimes/:id/locks",
		"":              "rl:ip:10.0.0.1:session:s1:route:POST /v1/showtimes/:id/locks",
	}
	for strategy, want := range cases {
		cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}
		assert.Equal(t, want, rateKey(cfg, c), "strategy %q", strategy)
	}
}

func TestRateKeyAnonymous(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "session"}
	assert.Equal(t, "rl:session:anon", rateKey(cfg, c))
}

func TestTokenBucketPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestTokenBucketLimits(t *testing.T) {
	rdb := redisOrSkip(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            time.Minute,
		KeyStrategy:    "session",
		Prefix:         "rltest-" + uuid.NewString(),
	}
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			SetSessionID(c, "s1")
			return next(c)
		}
	})
	e.Use(NewTokenBucket(cfg, rdb))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	t.Cleanup(func() { rdb.Del(context.Background(), cfg.Prefix+":session:s1") })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		e.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(3), asInt64(int64(3)))
	assert.Equal(t, int64(3), asInt64(3))
	assert.Equal(t, int64(3), asInt64(3.9))
	assert.Equal(t, int64(42), asInt64("42"))
	assert.Equal(t, int64(0), asInt64("x"))
	assert.Equal(t, int64(0), asInt64(nil))
}

func TestCacheKeyFrom(t *testing.T) {
	newCtx := func(target string) echo.Context {
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/showtimes")
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	a := cacheKeyFrom(cfg, newCtx("/v1/showtimes?movie=1"))
	b := cacheKeyFrom(cfg, newCtx("/v1/showtimes?movie=2"))
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, a)

	cfg.KeyStrategy = "route"
	assert.Equal(t,
		cacheKeyFrom(cfg, newCtx("/v1/showtimes?movie=1")),
		cacheKeyFrom(cfg, newCtx("/v1/showtimes?movie=2")))
}

func TestCaptureWriterTruncates(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated)
	_, _ = cw.Write([]byte("def"))

	assert.True(t, cw.truncated)
	assert.Equal(t, 0, cw.buf.Len())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, ok := decodePayload([]byte("not json"))
	assert.False(t, ok)
	_, ok = decodePayload([]byte(`{"body":"eA=="}`))
	assert.False(t, ok)
}

func TestRedisCacheHitAndMiss(t *testing.T) {
	rdb := redisOrSkip(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "cachetest-" + uuid.NewString(),
	}
	calls := 0
	e := echo.New()
	e.Use(NewRedisCache(cfg, rdb))
	e.GET("/v1/showtimes", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	})

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/showtimes?date=2026-03-01", nil))
	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/showtimes?date=2026-03-01", nil))

	t.Cleanup(func() {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/showtimes?date=2026-03-01", nil), httptest.NewRecorder())
		c.SetPath("/v1/showtimes")
		rdb.Del(context.Background(), cacheKeyFrom(cfg, c))
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
}

func TestMetricsBasicAuth(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	t.Run("open when unconfigured", func(t *testing.T) {
		e := echo.New()
		e.GET("/metrics", ok, MetricsBasicAuth("", ""))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("requires credentials when configured", func(t *testing.T) {
		e := echo.New()
		e.GET("/metrics", ok, MetricsBasicAuth("prom", "secret"))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.SetBasicAuth("prom", "wrong")
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.SetBasicAuth("prom", "secret")
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestPrometheus(t *testing.T) {
	m := metrics.NewNop()
	e := echo.New()
	e.Use(Prometheus(m))
	e.GET("/v1/showtimes/:id/seats", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/v1/missing/:id", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/showtimes/10/seats", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/showtimes/11/seats", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/missing/1", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/showtimes/:id/seats", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/missing/:id", "404")))
}

func TestRequestLogger(t *testing.T) {
	logs := observeLogs(t)
	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/ok", func(c echo.Context) error {
		SetSessionID(c, "s1")
		return c.NoContent(http.StatusOK)
	})
	e.GET("/conflict", func(c echo.Context) error { return echo.NewHTTPError(http.StatusConflict, "taken") })
	e.GET("/boom", func(c echo.Context) error { return c.NoContent(http.StatusInternalServerError) })

	for _, p := range []string{"/ok", "/conflict", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "s1", entries[0].ContextMap()["session_id"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusConflict, entries[1].ContextMap()["status"])

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "server error", entries[2].Message)
}
