package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/match"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/store"
)

// DriverDirectory lists drivers with their active schedules.
type DriverDirectory interface {
    ListDriverCards(ctx context.Context) ([]model.DriverCard, error)
}

// ScheduleHandler serves schedule CRUD, matching and the driver browse.
// Every endpoint acts on the caller's current role.
type ScheduleHandler struct {
    Schedules store.ScheduleStore
    Directory DriverDirectory
    Log       *zap.Logger
}

func NewScheduleHandler(s store.ScheduleStore, d DriverDirectory, log *zap.Logger) *ScheduleHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &ScheduleHandler{Schedules: s, Directory: d, Log: log.Named("schedules")}
}

type scheduleReq struct {
    Day                string  `json:"day" validate:"required,weekday"`
    Time               string  `json:"time" validate:"required"`
    Origin             string  `json:"origin" validate:"required,place"`
    Destination        string  `json:"destination" validate:"required,place"`
    Zone               *string `json:"zone" validate:"omitempty,max=120"`
    Seats              int     `json:"seats"`
    FlexibilityMinutes int     `json:"flexibility_minutes"`
}

// toSchedule builds and validates a schedule owned by the caller.
func (r scheduleReq) toSchedule(ownerID string, role model.Role) (*model.Schedule, error) {
    s := &model.Schedule{
        OwnerID:            ownerID,
        Role:               role,
        Day:                model.Weekday(r.Day),
        Time:               r.Time,
        Origin:             model.Place(r.Origin),
        Destination:        model.Place(r.Destination),
        Zone:               r.Zone,
        Seats:              r.Seats,
        FlexibilityMinutes: r.FlexibilityMinutes,
    }
    if err := match.ValidateNew(s); err != nil {
        return nil, err
    }
    return s, nil
}

// List returns the caller's active schedules.
func (h *ScheduleHandler) List(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    items, err := h.Schedules.ListActiveSchedules(ctx, sess.Role, sess.UserID)
    if err != nil {
        return fail(c, h.Log, apperr.Store("list schedules", err))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Create adds a schedule in the caller's role.
func (h *ScheduleHandler) Create(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    var req scheduleReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, h.Log, err)
    }
    s, err := req.toSchedule(sess.UserID, sess.Role)
    if err != nil {
        return fail(c, h.Log, err)
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    if err := h.Schedules.CreateSchedule(ctx, s); err != nil {
        return fail(c, h.Log, apperr.Store("create schedule", err))
    }
    return c.JSON(http.StatusCreated, s)
}

// Replace edits a schedule: the old row is deactivated and a new one
// inserted, so requests keep pointing at the version they were made for.
func (h *ScheduleHandler) Replace(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    var req scheduleReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, h.Log, err)
    }
    s, err := req.toSchedule(sess.UserID, sess.Role)
    if err != nil {
        return fail(c, h.Log, err)
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    if err := h.Schedules.ReplaceSchedule(ctx, c.Param("id"), s); err != nil {
        return fail(c, h.Log, storeErr("replace schedule", err))
    }
    return c.JSON(http.StatusOK, s)
}

// Delete deactivates one of the caller's schedules.
func (h *ScheduleHandler) Delete(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    if err := h.Schedules.SoftDeleteSchedule(ctx, sess.Role, c.Param("id"), sess.UserID); err != nil {
        return fail(c, h.Log, storeErr("delete schedule", err))
    }
    return c.NoContent(http.StatusNoContent)
}

// Matches compares the caller's schedules with every active schedule of
// the opposite role.  By default each candidate owner is reported once;
// ?all=true returns every compatible pair.
func (h *ScheduleHandler) Matches(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    mine, err := h.Schedules.ListActiveSchedules(ctx, sess.Role, sess.UserID)
    if err != nil {
        return fail(c, h.Log, apperr.Store("list own schedules", err))
    }
    others, err := h.Schedules.ListActiveSchedules(ctx, sess.Role.Opposite(), "")
    if err != nil {
        return fail(c, h.Log, apperr.Store("list candidates", err))
    }
    candidates := others[:0]
    for _, o := range others {
        if o.OwnerID != sess.UserID {
            candidates = append(candidates, o)
        }
    }
    found, err := match.Find(mine, candidates)
    if err != nil {
        return fail(c, h.Log, err)
    }
    if c.QueryParam("all") != "true" {
        found = match.DedupeByOwner(found)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": found})
}

// Drivers lists drivers with active schedules for passengers to browse,
// optionally filtered by ?day=, ?origin= and ?zone=.
func (h *ScheduleHandler) Drivers(c echo.Context) error {
    f := match.Filter{
        Day:    model.Weekday(c.QueryParam("day")),
        Origin: model.Place(c.QueryParam("origin")),
        Zone:   c.QueryParam("zone"),
    }
    if f.Day != "" && !f.Day.Valid() {
        return fail(c, h.Log, apperr.Invalid("day", "unknown weekday"))
    }
    if f.Origin != "" && !f.Origin.Valid() {
        return fail(c, h.Log, apperr.Invalid("origin", "must be residencia or universidad"))
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    cards, err := h.Directory.ListDriverCards(ctx)
    if err != nil {
        return fail(c, h.Log, apperr.Store("list drivers", err))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": f.Apply(cards)})
}

// storeErr keeps repository sentinels so they map to 404/403, and wraps
// anything else as a store failure.
func storeErr(op string, err error) error {
    if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrForbidden) ||
        errors.Is(err, apperr.ErrStateConflict) || apperr.IsValidation(err) {
        return err
    }
    return apperr.Store(op, err)
}
