package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/model"
)

// FavoriteStore keeps favourite drivers and the contact history.
type FavoriteStore interface {
    Toggle(ctx context.Context, passengerID, driverID string) (bool, error)
    ListFavorites(ctx context.Context, passengerID string) ([]model.FavoriteDriver, error)
    RecordContact(ctx context.Context, c *model.ContactRecord) error
    ListContacts(ctx context.Context, passengerID string) ([]model.ContactRecord, error)
}

// FavoriteHandler serves a passenger's favourites and contact history.
type FavoriteHandler struct {
    Favorites FavoriteStore
    Log       *zap.Logger
}

func NewFavoriteHandler(f FavoriteStore, log *zap.Logger) *FavoriteHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &FavoriteHandler{Favorites: f, Log: log.Named("favorites")}
}

type contactReq struct {
    DriverID string `json:"driver_id" validate:"required"`
    Channel  string `json:"channel" validate:"required,oneof=whatsapp phone"`
}

func (h *FavoriteHandler) List(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    items, err := h.Favorites.ListFavorites(ctx, sess.UserID)
    if err != nil {
        return fail(c, h.Log, apperr.Store("list favorites", err))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Toggle adds or removes :driver_id from the caller's favourites.
func (h *FavoriteHandler) Toggle(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    driverID := c.Param("driver_id")
    if driverID == sess.UserID {
        return fail(c, h.Log, apperr.Invalid("driver_id", "cannot favourite yourself"))
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    on, err := h.Favorites.Toggle(ctx, sess.UserID, driverID)
    if err != nil {
        return fail(c, h.Log, apperr.Store("toggle favorite", err))
    }
    return c.JSON(http.StatusOK, echo.Map{"driver_id": driverID, "favorite": on})
}

func (h *FavoriteHandler) Contacts(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    items, err := h.Favorites.ListContacts(ctx, sess.UserID)
    if err != nil {
        return fail(c, h.Log, apperr.Store("list contacts", err))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// RecordContact logs that the passenger reached a driver over WhatsApp or
// phone.
func (h *FavoriteHandler) RecordContact(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    var req contactReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, h.Log, err)
    }
    rec := &model.ContactRecord{
        PassengerID: sess.UserID,
        DriverID:    req.DriverID,
        Channel:     model.ContactChannel(req.Channel),
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    if err := h.Favorites.RecordContact(ctx, rec); err != nil {
        return fail(c, h.Log, apperr.Store("record contact", err))
    }
    return c.JSON(http.StatusCreated, rec)
}
