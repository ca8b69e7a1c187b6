package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/elder-health-text/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 {
        cw.buf.Write(b)
    } else if remain := cw.limit - cw.size; remain > 0 {
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds a stable key from the route and, for the default
// "route_body" strategy, the raw request body.  The text endpoints are pure
// functions of their body, so equal bodies always map to equal responses.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, body []byte) string {
    r := c.Request()
    route := c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = append(parts, "route", route)
    case "route_query":
        parts = append(parts, "route", route, "q", r.URL.RawQuery)
    default: // "route_body"
        parts = append(parts, "method", r.Method, "route", route, "body", string(body))
    }

    tail := strings.Join(parts[1:], ":")
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:%x", parts[0], sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// skipHeaders are per-request and must not be replayed from the cache.
var skipHeaders = map[string]bool{
    "Content-Length":        true,
    "X-Request-Id":          true,
    "X-Cache":               true,
    "X-Ratelimit-Limit":     true,
    "X-Ratelimit-Remaining": true,
}

// HitHook runs after a cached response has been replayed.  The handler is
// skipped on a hit, so work it does besides answering (audit events) goes here.
type HitHook func(c echo.Context, reqBody []byte)

// NewRedisCache replays stored 200 responses for identical requests.  Bodies
// larger than MaxBodyBytes are neither hashed nor cached.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, onHit ...HitHook) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 { ttl = 5 * time.Minute }

    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[strings.ToUpper(req.Method)] {
                return next(c)
            }

            var reqBody []byte
            if req.Body != nil {
                limit := maxBody
                if limit <= 0 { limit = 1 << 20 }
                bs, err := io.ReadAll(io.LimitReader(req.Body, limit+1))
                req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bs), req.Body))
                if err != nil || int64(len(bs)) > limit {
                    return next(c)
                }
                reqBody = bs
            }

            ctx := req.Context()
            key := cacheKeyFrom(cfg, c, reqBody)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if skipHeaders[http.CanonicalHeaderKey(k)] { continue }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    for _, hook := range onHit {
                        hook(c, reqBody)
                    }
                    return nil
                }
            } else if err != redis.Nil {
                c.Logger().Warnf("[cache] redis get %s: %v", key, err)
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if cw.status == http.StatusOK && (maxBody <= 0 || cw.size <= maxBody) {
                hdr := c.Response().Header().Clone()
                if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
                    if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
                        c.Logger().Warnf("[cache] redis set %s: %v", key, err)
                    }
                }
            }
            return nil
        }
    }
}
