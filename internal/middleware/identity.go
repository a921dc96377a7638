package middleware

// identity.go holds the caller lookup shared by the rate limiter and the
// response cache.

import "github.com/labstack/echo/v4"

// currentUserID returns the user id stored by JWTAuth, or "anon" on
// public routes.
func currentUserID(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    return "anon"
}
