package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig parameterises a Redis token bucket.  Capacity tokens are
// available up front and RefillTokens come back every RefillInterval.
// PerUser adds the caller to the key; it only makes sense behind JWTAuth.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    PerUser        bool
    Prefix         string
}

// LoadRateLimitConfig returns the bucket applied to every API route.
func LoadRateLimitConfig() RateLimitConfig {
    return loadBucket("RATE_LIMIT", RateLimitConfig{
        Capacity:       60,
        RefillTokens:   1,
        RefillInterval: time.Second,
        TTL:            10 * time.Minute,
        PerUser:        true,
        Prefix:         "rl",
    })
}

// LoadAuthRateLimitConfig returns the stricter bucket for register, login
// and refresh.  It is keyed by client IP since no user is known yet.
func LoadAuthRateLimitConfig() RateLimitConfig {
    return loadBucket("AUTH_RATE_LIMIT", RateLimitConfig{
        Capacity:       10,
        RefillTokens:   1,
        RefillInterval: 6 * time.Second,
        TTL:            10 * time.Minute,
        Prefix:         "rl:auth",
    })
}

// loadBucket overlays <prefix>_* variables on def.
func loadBucket(p string, def RateLimitConfig) RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool(p+"_ENABLED", true),
        Capacity:       envInt(p+"_CAPACITY", def.Capacity),
        RefillTokens:   envInt(p+"_REFILL_TOKENS", def.RefillTokens),
        RefillInterval: envDur(p+"_REFILL_INTERVAL", def.RefillInterval),
        TTL:            envDur(p+"_TTL", def.TTL),
        PerUser:        def.PerUser,
        Prefix:         envStr(p+"_PREFIX", def.Prefix),
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
        cfg.TTL = minTTL
    }
    return cfg
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
