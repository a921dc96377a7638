package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/uniride/uniride-api/internal/model"
)

// RequireRole aborts with 403 unless the role stored by JWTAuth is one of
// roles.  A user who has not picked a role yet is told to do so first.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            v, _ := c.Get("role").(string)
            role := model.Role(v)
            if role == model.RoleNone {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "choose a role first"})
            }
            if !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
