package handler // handler defines http handlers

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/repository"
    "github.com/uniride/uniride-api/internal/session"
)

// dbTimeout bounds the store calls made while serving one request.
const dbTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// currentSession returns the caller stored by the JWT middleware, or
// session.ErrNoSession which fail reports as 401.
func currentSession(c echo.Context) (session.Session, error) {
    return session.FromEcho(c)
}

// fail writes the JSON error response matching err.  Unknown errors are
// logged and reported as 500 without leaking details.
func fail(c echo.Context, log *zap.Logger, err error) error {
    var (
        ve *apperr.ValidationError
        su *apperr.StoreUnavailable
    )
    switch {
    case errors.Is(err, session.ErrNoSession):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    case errors.As(err, &ve):
        body := echo.Map{"error": ve.Error()}
        if ve.Field != "" {
            body["field"] = ve.Field
        }
        return c.JSON(http.StatusBadRequest, body)
    case errors.Is(err, apperr.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, apperr.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, apperr.ErrStateConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrEmailExists), errors.Is(err, repository.ErrPlateExists):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.As(err, &su), errors.Is(err, context.DeadlineExceeded):
        log.Error("store unavailable", zap.String("route", c.Path()), zap.Error(err))
        c.Response().Header().Set("Retry-After", "5")
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service temporarily unavailable, please retry"})
    default:
        log.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// withWarning adds a "warning" field when err reports a side effect that
// failed after the primary change was committed.
func withWarning(body echo.Map, err error) echo.Map {
    var ps *apperr.PartialSideEffect
    if errors.As(err, &ps) {
        body["warning"] = "saved, but " + ps.Effect + " could not be delivered"
    }
    return body
}

// bindValid binds the request into dst and runs the registered validator.
func bindValid(c echo.Context, dst any) error {
    if err := c.Bind(dst); err != nil {
        return apperr.Invalid("", "invalid body")
    }
    if c.Echo().Validator == nil {
        return nil
    }
    return c.Validate(dst)
}
