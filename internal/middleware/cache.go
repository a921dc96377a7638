package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/config"
)

// cachedPage is what a hit replays.
type cachedPage struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// teeWriter copies the body into buf until it grows past limit.
type teeWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// pageKey scopes entries to the caller, the route and the raw query so
// one passenger's favourites never show up in another's listing.
func pageKey(prefix string, c echo.Context) string {
    sum := sha1.Sum([]byte(currentUserID(c) + "\x00" + c.Path() + "?" + c.Request().URL.RawQuery))
    return fmt.Sprintf("%s:%x", prefix, sum)
}

// NewRedisCache serves repeated GETs of a listing from Redis for cfg.TTL.
// Only 200 responses are stored; Redis errors fall through to the handler.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = zap.NewNop()
    }
    log = log.Named("cache")
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 15 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            key := pageKey(cfg.Prefix, c)

            if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                var page cachedPage
                if json.Unmarshal(raw, &page) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(page.Status, page.ContentType, page.Body)
                }
            }

            w := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = w
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if w.status != http.StatusOK || w.overflow {
                return nil
            }

            raw, err := json.Marshal(cachedPage{
                Status:      w.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        w.buf.Bytes(),
            })
            if err == nil {
                err = rdb.Set(context.Background(), key, raw, ttl).Err()
            }
            if err != nil {
                log.Warn("store failed", zap.String("route", c.Path()), zap.Error(err))
            }
            return nil
        }
    }
}
