package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/hotel-reservation/internal/config"
)

// bucketScript takes one token from the bucket stored at KEYS[1].  The hash
// holds the token count and the time of the last whole refill step.
// Returns {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local step     = tonumber(ARGV[3])
local every    = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp  = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if tokens == nil or stamp == nil then
  tokens = capacity
  stamp = now
end

if every > 0 and now > stamp then
  local steps = math.floor((now - stamp) / every)
  if steps > 0 then
    tokens = math.min(capacity, tokens + steps * step)
    stamp = stamp + steps * every
  end
end

local allowed, wait = 0, 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.max(0, every - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, wait}
`)

type bucketResult struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

// parseBucketResult decodes the script reply.  ok is false for any reply
// that does not have the expected shape.
func parseBucketResult(reply any) (res bucketResult, ok bool) {
    arr, isSlice := reply.([]any)
    if !isSlice || len(arr) != 3 {
        return bucketResult{}, false
    }
    res.Allowed = toInt64(arr[0]) == 1
    res.Remaining = toInt64(arr[1])
    res.RetryAfter = time.Duration(toInt64(arr[2])) * time.Millisecond
    return res, true
}

func toInt64(v any) int64 {
    switch n := v.(type) {
    case int64:
        return n
    case int:
        return int64(n)
    case float64:
        return int64(n)
    case string:
        i, _ := strconv.ParseInt(n, 10, 64)
        return i
    }
    return 0
}

// NewTokenBucket limits requests per key (see rateKey) with a token bucket
// kept in Redis.  The bucket is updated atomically by a Lua script.  Redis
// errors let the request through; so does a nil client or a disabled config.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttlSec := int64(math.Ceil(cfg.TTL.Seconds()))
    if ttlSec < 1 {
        ttlSec = 1
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            reply, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), ttlSec,
            ).Result()
            if err != nil {
                log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            res, ok := parseBucketResult(reply)
            if !ok {
                log.Warn("rate limit reply malformed", zap.String("key", key), zap.Any("reply", reply))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if res.Allowed {
                return next(c)
            }

            secs := int(math.Ceil(res.RetryAfter.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                log.Debug("rate limited", zap.String("key", key), zap.Duration("retry_after", res.RetryAfter))
            }
            return echo.NewHTTPError(http.StatusTooManyRequests,
                fmt.Sprintf("Rate limit exceeded, retry in %d seconds", secs))
        }
    }
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// rateKey joins the parts named by cfg.KeyStrategy, an underscore separated
// list of "ip", "user" and "route".  Unknown or empty strategies key on all
// three.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    for _, part := range strings.Split(strings.ToLower(cfg.KeyStrategy), "_") {
        switch part {
        case "ip":
            ip := c.RealIP()
            if ip == "" {
                ip = "unknown"
            }
            parts = append(parts, "ip", ip)
        case "user":
            parts = append(parts, "user", currentUserID(c))
        case "route":
            parts = append(parts, "route", c.Request().Method+" "+c.Path())
        }
    }
    if len(parts) == 1 {
        return rateKey(config.RateLimitConfig{Prefix: cfg.Prefix, KeyStrategy: "ip_user_route"}, c)
    }
    return strings.Join(parts, ":")
}
