package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/lifecycle"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/session"
)

// RequestHandler exposes the trip request lifecycle.
type RequestHandler struct {
    Trips *lifecycle.Service
    Log   *zap.Logger
}

func NewRequestHandler(trips *lifecycle.Service, log *zap.Logger) *RequestHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &RequestHandler{Trips: trips, Log: log.Named("requests")}
}

type createRequestReq struct {
    DriverScheduleID string  `json:"driver_schedule_id" validate:"required"`
    Message          *string `json:"message" validate:"omitempty,max=500"`
}

// reply writes req with status, or the error.  A side effect that failed
// after commit still answers with the request plus a warning.
func (h *RequestHandler) reply(c echo.Context, status int, req *model.TripRequest, err error) error {
    if err != nil && !(apperr.IsPartial(err) && req != nil) {
        return fail(c, h.Log, err)
    }
    return c.JSON(status, withWarning(echo.Map{"request": req}, err))
}

// Create sends a trip request for a driver schedule.
func (h *RequestHandler) Create(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    var body createRequestReq
    if err := bindValid(c, &body); err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    req, err := h.Trips.Create(ctx, sess, body.DriverScheduleID, body.Message)
    return h.reply(c, http.StatusCreated, req, err)
}

// List returns the pending requests addressed to a driver, or a
// passenger's pending and accepted requests.
func (h *RequestHandler) List(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    var items []model.TripRequest
    switch sess.Role {
    case model.RoleDriver:
        items, err = h.Trips.PendingForDriver(ctx, sess.UserID)
    case model.RolePassenger:
        items, err = h.Trips.ActiveForPassenger(ctx, sess.UserID)
    default:
        return c.JSON(http.StatusForbidden, echo.Map{"error": "choose a role first"})
    }
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Accept, Reject and Cancel move a request to its next state.
func (h *RequestHandler) Accept(c echo.Context) error { return h.transition(c, h.Trips.Accept) }
func (h *RequestHandler) Reject(c echo.Context) error { return h.transition(c, h.Trips.Reject) }
func (h *RequestHandler) Cancel(c echo.Context) error { return h.transition(c, h.Trips.Cancel) }

type transitionFunc func(ctx context.Context, sess session.Session, requestID string) (*model.TripRequest, error)

func (h *RequestHandler) transition(c echo.Context, fn transitionFunc) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    req, err := fn(ctx, sess, c.Param("id"))
    return h.reply(c, http.StatusOK, req, err)
}
