package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/hotel-reservation/internal/config"
)

// cacheEntry is the value stored in Redis for one cached response.
type cacheEntry struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

// uncachedHeaders belong to a single request and are never replayed.
var uncachedHeaders = map[string]bool{
    echo.HeaderContentLength: true,
    echo.HeaderXRequestID:    true,
    "X-Cache":                true,
    "X-Ratelimit-Limit":      true,
    "X-Ratelimit-Remaining":  true,
    "X-Ratelimit-Key":        true,
}

// bodyRecorder tees the response body into buf until limit bytes have
// been written.  Past the limit it drops the copy and sets overflow.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the request parts selected by cfg.KeyStrategy under
// cfg.Prefix.  The concrete URL path is used so /rooms/1 and /rooms/2
// never share an entry.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var id string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        id = r.URL.Path
    case "method_route":
        id = r.Method + " " + r.URL.Path
    case "method_route_query":
        id = r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery
    default: // route_query
        id = r.URL.Path + "?" + r.URL.RawQuery
    }
    sum := sha256.Sum256([]byte(id))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:16])
}

func marshalEntry(status int, header http.Header, body []byte) ([]byte, error) {
    kept := make(http.Header, len(header))
    for k, v := range header {
        if uncachedHeaders[http.CanonicalHeaderKey(k)] {
            continue
        }
        kept[k] = append([]string(nil), v...)
    }
    return json.Marshal(cacheEntry{Status: status, Header: kept, Body: body})
}

func unmarshalEntry(bs []byte) (cacheEntry, bool) {
    var e cacheEntry
    if err := json.Unmarshal(bs, &e); err != nil || e.Status == 0 {
        return cacheEntry{}, false
    }
    return e, true
}

// NewRedisCache serves 200 responses of cfg.Methods from Redis for cfg.TTL.
// Responses larger than cfg.MaxBodyBytes are passed through but not
// stored.  PurgeCache drops every entry when room inventory changes.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            key := cacheKeyFrom(cfg, c)
            res := c.Response()

            if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                if e, ok := unmarshalEntry(bs); ok {
                    for k, v := range e.Header {
                        res.Header()[k] = v
                    }
                    res.Header().Set("X-Cache", "HIT")
                    res.WriteHeader(e.Status)
                    _, err := res.Write(e.Body)
                    return err
                }
            }

            rec := &bodyRecorder{ResponseWriter: res.Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            res.Writer = rec
            res.Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }
            payload, err := marshalEntry(rec.status, res.Header(), rec.buf.Bytes())
            if err != nil {
                return nil
            }
            // the request context may already be canceled once the body is sent
            ctx, cancel := context.WithTimeout(context.Background(), time.Second)
            defer cancel()
            _ = rdb.Set(ctx, key, payload, ttl).Err()
            return nil
        }
    }
}

// PurgeCache deletes every cached entry under prefix.  A nil client is a
// no-op.  Keys are walked with SCAN and deleted in batches.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) error {
    if rdb == nil {
        return nil
    }
    const batchSize = 200
    batch := make([]string, 0, batchSize)
    flush := func() error {
        if len(batch) == 0 {
            return nil
        }
        err := rdb.Unlink(ctx, batch...).Err()
        batch = batch[:0]
        return err
    }
    iter := rdb.Scan(ctx, 0, prefix+":*", batchSize).Iterator()
    for iter.Next(ctx) {
        batch = append(batch, iter.Val())
        if len(batch) == batchSize {
            if err := flush(); err != nil {
                return err
            }
        }
    }
    if err := iter.Err(); err != nil {
        return err
    }
    return flush()
}
