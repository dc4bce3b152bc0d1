package middleware

import (
    "net/http"
    "net/http/httptest"
    "strconv"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/Serious-senpai/pet-house/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func cacheCfg() config.CacheConfig {
    return config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{http.MethodGet: true},
        TTL:          time.Minute,
        KeyStrategy:  "route_query",
        Prefix:       "cache",
        MaxBodyBytes: 1 << 20,
    }
}

func limitCfg(capacity int, every time.Duration) config.RateLimitConfig {
    return config.RateLimitConfig{
        Enabled:        true,
        Capacity:       capacity,
        RefillTokens:   1,
        RefillInterval: every,
        TTL:            10 * every,
        KeyStrategy:    "ip_route",
        Prefix:         "rl",
    }
}

// serveRoot mounts h at GET / behind mw and returns a request helper.
func serveRoot(h echo.HandlerFunc, mw ...echo.MiddlewareFunc) func() *httptest.ResponseRecorder {
    e := echo.New()
    e.GET("/", h, mw...)
    return func() *httptest.ResponseRecorder {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
        return rec
    }
}

func countingRoot(calls *int) echo.HandlerFunc {
    return func(c echo.Context) error {
        *calls++
        return c.JSON(http.StatusOK, echo.Map{"data": nil})
    }
}

func TestRedisCache_ReplaysHit(t *testing.T) {
    _, rdb := newRedis(t)
    var calls int
    get := serveRoot(countingRoot(&calls), NewRedisCache(cacheCfg(), rdb))

    first := get()
    second := get()

    if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
        t.Fatalf("x-cache = %q, %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
    }
    if calls != 1 {
        t.Fatalf("handler called %d times, want 1", calls)
    }
    if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
        t.Fatalf("hit = %d %q, miss body %q", second.Code, second.Body.String(), first.Body.String())
    }
    if got := second.Header().Values(echo.HeaderContentType); len(got) != 1 {
        t.Fatalf("content-type values = %v", got)
    }
}

func TestRedisCache_SkipsOversizedBody(t *testing.T) {
    mr, rdb := newRedis(t)
    cfg := cacheCfg()
    cfg.MaxBodyBytes = 4
    var calls int
    get := serveRoot(countingRoot(&calls), NewRedisCache(cfg, rdb))

    get()
    rec := get()
    if calls != 2 || rec.Header().Get("X-Cache") != "MISS" {
        t.Fatalf("calls=%d x-cache=%q", calls, rec.Header().Get("X-Cache"))
    }
    if keys := mr.Keys(); len(keys) != 0 {
        t.Fatalf("stored keys %v", keys)
    }
}

func TestRedisCache_DoesNotStoreNon200(t *testing.T) {
    mr, rdb := newRedis(t)
    var calls int
    h := func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "down"})
    }
    get := serveRoot(h, NewRedisCache(cacheCfg(), rdb))

    get()
    rec := get()
    if calls != 2 || rec.Code != http.StatusServiceUnavailable {
        t.Fatalf("calls=%d code=%d", calls, rec.Code)
    }
    if keys := mr.Keys(); len(keys) != 0 {
        t.Fatalf("stored keys %v", keys)
    }
}

func TestTokenBucket_BlocksWhenEmpty(t *testing.T) {
    _, rdb := newRedis(t)
    var calls int
    get := serveRoot(countingRoot(&calls), NewTokenBucket(limitCfg(2, time.Minute), rdb))

    for i, want := range []string{"1", "0"} {
        rec := get()
        if rec.Code != http.StatusOK {
            t.Fatalf("call %d: status %d", i, rec.Code)
        }
        if got := rec.Header().Get("X-RateLimit-Remaining"); got != want {
            t.Fatalf("call %d: remaining %q, want %q", i, got, want)
        }
    }

    rec := get()
    if rec.Code != http.StatusTooManyRequests {
        t.Fatalf("status = %d, want 429", rec.Code)
    }
    secs, err := strconv.Atoi(rec.Header().Get("Retry-After"))
    if err != nil || secs < 1 || secs > 60 {
        t.Fatalf("retry-after = %q", rec.Header().Get("Retry-After"))
    }
    if calls != 2 {
        t.Fatalf("handler called %d times, want 2", calls)
    }
}

func TestMiddlewares_FailOpenWhenRedisDown(t *testing.T) {
    mr, rdb := newRedis(t)
    mr.Close()

    var calls int
    get := serveRoot(countingRoot(&calls),
        NewTokenBucket(limitCfg(1, time.Minute), rdb),
        NewRedisCache(cacheCfg(), rdb),
    )
    for i := 0; i < 3; i++ {
        if rec := get(); rec.Code != http.StatusOK {
            t.Fatalf("call %d: status %d", i, rec.Code)
        }
    }
    if calls != 3 {
        t.Fatalf("handler called %d times, want 3", calls)
    }
}

func TestCacheHit_CarriesLiveRateLimitHeadersOnly(t *testing.T) {
    _, rdb := newRedis(t)
    var calls int
    get := serveRoot(countingRoot(&calls),
        NewTokenBucket(limitCfg(3, time.Minute), rdb),
        NewRedisCache(cacheCfg(), rdb),
    )

    get()
    for i, want := range []string{"1", "0"} {
        rec := get()
        if rec.Header().Get("X-Cache") != "HIT" {
            t.Fatalf("call %d: x-cache %q", i, rec.Header().Get("X-Cache"))
        }
        got := rec.Header().Values("X-RateLimit-Remaining")
        if len(got) != 1 || got[0] != want {
            t.Fatalf("call %d: remaining %v, want [%s]", i, got, want)
        }
        if n := len(rec.Header().Values("X-RateLimit-Limit")); n != 1 {
            t.Fatalf("call %d: %d limit values", i, n)
        }
    }
}

func TestHandlerHeaders_ExcludesOuter(t *testing.T) {
    before := http.Header{"X-Ratelimit-Remaining": {"2"}, "X-Cache": {"MISS"}}
    after := before.Clone()
    after.Set("Content-Type", "application/json")

    got := handlerHeaders(before, after)
    if len(got) != 1 || got.Get("Content-Type") != "application/json" {
        t.Fatalf("got %v", got)
    }
}
