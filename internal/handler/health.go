package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health reports whether the service and its backing stores respond.  The
// database is required; Redis is optional and only reported.  A failed
// database ping answers 503 so load balancers take the instance out.
func Health(db Pinger, rdb *redis.Client) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()

        body := echo.Map{"status": "ok", "database": "ok", "redis": "disabled"}
        status := http.StatusOK
        if db != nil {
            if err := db.PingContext(ctx); err != nil {
                body["status"], body["database"] = "degraded", "down"
                status = http.StatusServiceUnavailable
            }
        }
        if rdb != nil {
            body["redis"] = "ok"
            if err := rdb.Ping(ctx).Err(); err != nil {
                body["redis"] = "down"
            }
        }
        return c.JSON(status, body)
    }
}
