package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Optional variables fall back to their default when unset or unparsable.

func envStr(key, def string) string {
    if v := strings.TrimSpace(os.Getenv(key)); v != "" {
        return v
    }
    return def
}

// envBool accepts strconv.ParseBool values plus yes/no and on/off.
func envBool(key string, def bool) bool {
    v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
    switch v {
    case "":
        return def
    case "yes", "on":
        return true
    case "no", "off":
        return false
    }
    if b, err := strconv.ParseBool(v); err == nil {
        return b
    }
    return def
}

func envInt(key string, def int) int {
    if n, err := strconv.Atoi(envStr(key, "")); err == nil {
        return n
    }
    return def
}

func envDur(key string, def time.Duration) time.Duration {
    if d, err := time.ParseDuration(envStr(key, "")); err == nil {
        return d
    }
    return def
}
