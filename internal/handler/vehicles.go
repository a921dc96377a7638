package handler

import (
    "context"
    "io"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/storage"
)

// VehicleStore persists vehicles.
type VehicleStore interface {
    Create(ctx context.Context, v *model.Vehicle) error
    ListByOwner(ctx context.Context, ownerID string) ([]model.Vehicle, error)
}

// DocumentStore keeps uploaded vehicle documents.
type DocumentStore interface {
    Save(ctx context.Context, ownerID string, kind storage.DocumentKind, r io.Reader) (string, error)
    Discard(ctx context.Context, url string) error
}

// VehicleHandler registers drivers' vehicles with their documents.
type VehicleHandler struct {
    Vehicles  VehicleStore
    Documents DocumentStore
    Log       *zap.Logger
}

func NewVehicleHandler(v VehicleStore, d DocumentStore, log *zap.Logger) *VehicleHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &VehicleHandler{Vehicles: v, Documents: d, Log: log.Named("vehicles")}
}

type vehicleForm struct {
    Plate    string `form:"plate" validate:"required,min=5,max=10"`
    Brand    string `form:"brand" validate:"required,max=64"`
    Model    string `form:"model" validate:"required,max=64"`
    Color    string `form:"color" validate:"required,max=32"`
    Year     string `form:"year" validate:"required"`
    Capacity string `form:"capacity"`
}

// Create accepts a multipart form with the vehicle fields and one file per
// document kind (property_card, license, insurance).  Documents already
// written are removed again when a later step fails.
func (h *VehicleHandler) Create(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    var form vehicleForm
    if err := bindValid(c, &form); err != nil {
        return fail(c, h.Log, err)
    }
    year, err := strconv.Atoi(strings.TrimSpace(form.Year))
    if err != nil || year < 1950 || year > 2100 {
        return fail(c, h.Log, apperr.Invalid("year", "must be a valid model year"))
    }
    capacity := 0
    if s := strings.TrimSpace(form.Capacity); s != "" {
        if capacity, err = strconv.Atoi(s); err != nil || capacity < 1 || capacity > 8 {
            return fail(c, h.Log, apperr.Invalid("capacity", "must be between 1 and 8"))
        }
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    urls := make(map[storage.DocumentKind]string, len(storage.VehicleDocuments))
    discard := func() {
        for _, u := range urls {
            if err := h.Documents.Discard(context.Background(), u); err != nil {
                h.Log.Warn("discard document failed", zap.String("url", u), zap.Error(err))
            }
        }
    }
    for _, kind := range storage.VehicleDocuments {
        fh, err := c.FormFile(string(kind))
        if err != nil {
            discard()
            return fail(c, h.Log, apperr.Invalid(string(kind), "file is required"))
        }
        f, err := fh.Open()
        if err != nil {
            discard()
            return fail(c, h.Log, err)
        }
        url, err := h.Documents.Save(ctx, sess.UserID, kind, f)
        _ = f.Close()
        if err != nil {
            discard()
            return fail(c, h.Log, err)
        }
        urls[kind] = url
    }

    v := &model.Vehicle{
        OwnerID:         sess.UserID,
        Plate:           form.Plate,
        Brand:           strings.TrimSpace(form.Brand),
        Model:           strings.TrimSpace(form.Model),
        Color:           strings.TrimSpace(form.Color),
        Year:            year,
        Capacity:        capacity,
        PropertyCardURL: urls[storage.PropertyCard],
        LicenseURL:      urls[storage.License],
        InsuranceURL:    urls[storage.Insurance],
    }
    if err := h.Vehicles.Create(ctx, v); err != nil {
        discard()
        return fail(c, h.Log, err)
    }
    h.Log.Info("vehicle registered", zap.String("user_id", sess.UserID), zap.String("plate", v.Plate))
    return c.JSON(http.StatusCreated, v)
}

// List returns the caller's vehicles.
func (h *VehicleHandler) List(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    items, err := h.Vehicles.ListByOwner(ctx, sess.UserID)
    if err != nil {
        return fail(c, h.Log, apperr.Store("list vehicles", err))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
