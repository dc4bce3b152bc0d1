package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/Serious-senpai/pet-house/internal/config"
)

// captureWriter tees the response body into buf, up to limit bytes, while
// forwarding everything to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    limit  int64
    over   bool
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.over {
        if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
            cw.over = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// cachedResponse is what a cache entry holds.  On the wire it is
// [4 bytes status][4 bytes header length][header JSON][body].
type cachedResponse struct {
    Status int
    Header http.Header
    Body   []byte
}

func (r cachedResponse) encode() ([]byte, error) {
    hdr, err := json.Marshal(r.Header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdr)+len(r.Body))
    binary.BigEndian.PutUint32(out[0:4], uint32(r.Status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
    copy(out[8:], hdr)
    copy(out[8+len(hdr):], r.Body)
    return out, nil
}

func decodeCachedResponse(bs []byte) (cachedResponse, bool) {
    if len(bs) < 8 {
        return cachedResponse{}, false
    }
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return cachedResponse{}, false
    }
    r := cachedResponse{Status: int(binary.BigEndian.Uint32(bs[0:4])), Header: http.Header{}}
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &r.Header); err != nil {
            return cachedResponse{}, false
        }
    }
    r.Body = bs[8+hlen:]
    return r, true
}

// cacheKey hashes the parts selected by KeyStrategy under Prefix.
// Strategies: route, method_route, method_route_query, route_query (default).
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "method_route":
        parts = []string{"method", r.Method, "route", c.Path()}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default:
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// handlerHeaders returns the headers in after that were not already present
// in before, i.e. the ones written downstream of the cache.
func handlerHeaders(before, after http.Header) http.Header {
    out := http.Header{}
    for k, vals := range after {
        if _, ok := before[k]; ok {
            continue
        }
        out[k] = append([]string(nil), vals...)
    }
    return out
}

// NewRedisCache replays stored 200 responses byte for byte.  Only headers
// written by the wrapped handler are stored.  A disabled config or a nil
// client yields a pass-through middleware.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 { ttl = 5 * time.Minute }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := cacheKey(cfg, c)
            res := c.Response()

            if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                if hit, ok := decodeCachedResponse(bs); ok {
                    for k, vals := range hit.Header {
                        if strings.EqualFold(k, echo.HeaderContentLength) { continue }
                        res.Header()[k] = append([]string(nil), vals...)
                    }
                    res.Header().Set("X-Cache", "HIT")
                    res.WriteHeader(hit.Status)
                    _, err := res.Write(hit.Body)
                    return err
                }
            } else if err != redis.Nil {
                c.Logger().Warnf("[cache] redis get %s: %v", key, err)
            }

            cw := &captureWriter{ResponseWriter: res.Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
            res.Writer = cw
            res.Header().Set("X-Cache", "MISS")
            // headers set by outer middleware (rate limit counters) are per request
            outer := res.Header().Clone()
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.over {
                return nil
            }

            hdr := handlerHeaders(outer, res.Header())
            payload, err := cachedResponse{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()}.encode()
            if err != nil {
                return nil
            }
            // the request context may already be cancelled once the body is flushed
            if err := rdb.SetEx(context.Background(), key, payload, ttl).Err(); err != nil {
                c.Logger().Warnf("[cache] redis set %s: %v", key, err)
            }
            return nil
        }
    }
}
