package middleware

import (
    "context"
    "net/http"
    "net/url"
    "path"
    "strings"

    "github.com/labstack/echo/v4"
)

// DocumentAccessFunc reports whether viewerID may read documents uploaded
// by ownerID.
type DocumentAccessFunc func(ctx context.Context, viewerID, ownerID string) (bool, error)

// DocumentAccess guards a static route of per-user uploads.  The first
// segment of the wildcard path is the uploader; they always get through,
// anyone else only when allow says so.  It must run after JWTAuth.
func DocumentAccess(allow DocumentAccessFunc) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            viewer, _ := c.Get("user_id").(string)
            if viewer == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
            }
            p, err := url.PathUnescape(c.Param("*"))
            if err != nil {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad path"})
            }
            owner, _, _ := strings.Cut(strings.TrimPrefix(path.Clean("/"+p), "/"), "/")
            if owner == "" {
                return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
            }
            if owner == viewer {
                return next(c)
            }
            if allow != nil {
                ok, err := allow(c.Request().Context(), viewer, owner)
                if err != nil {
                    c.Response().Header().Set("Retry-After", "5")
                    return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "try again later"})
                }
                if ok {
                    return next(c)
                }
            }
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        }
    }
}
