package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "sync"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/uniride/uniride-api/internal/model"
)

type favoriteBook struct {
    mu       sync.Mutex
    on       map[string]bool
    contacts []model.ContactRecord
    err      error
}

func (b *favoriteBook) Toggle(_ context.Context, passengerID, driverID string) (bool, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    if b.err != nil {
        return false, b.err
    }
    if b.on == nil {
        b.on = make(map[string]bool)
    }
    key := passengerID + "/" + driverID
    b.on[key] = !b.on[key]
    return b.on[key], nil
}

func (b *favoriteBook) ListFavorites(_ context.Context, passengerID string) ([]model.FavoriteDriver, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    out := []model.FavoriteDriver{}
    for key, on := range b.on {
        if driverID, ok := strings.CutPrefix(key, passengerID+"/"); on && ok {
            out = append(out, model.FavoriteDriver{PassengerID: passengerID, DriverID: driverID})
        }
    }
    return out, nil
}

func (b *favoriteBook) RecordContact(_ context.Context, c *model.ContactRecord) error {
    b.mu.Lock()
    defer b.mu.Unlock()
    c.ID = "c1"
    b.contacts = append(b.contacts, *c)
    return nil
}

func (b *favoriteBook) ListContacts(_ context.Context, passengerID string) ([]model.ContactRecord, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    return b.contacts, nil
}

func TestFavoriteToggle(t *testing.T) {
    book := &favoriteBook{}
    h := NewFavoriteHandler(book, nil)

    rec := call(t, h.Toggle, http.MethodPut, "/", "", passenger, "driver_id", "dan")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, true, decode(t, rec)["favorite"])

    rec = call(t, h.List, http.MethodGet, "/v1/favorites", "", passenger)
    assert.Len(t, decode(t, rec)["items"], 1)

    rec = call(t, h.Toggle, http.MethodPut, "/", "", passenger, "driver_id", "dan")
    assert.Equal(t, false, decode(t, rec)["favorite"])

    rec = call(t, h.Toggle, http.MethodPut, "/", "", passenger, "driver_id", "pat")
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    book.err = errors.New("deadlock")
    rec = call(t, h.Toggle, http.MethodPut, "/", "", passenger, "driver_id", "dan")
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecordContact(t *testing.T) {
    book := &favoriteBook{}
    h := NewFavoriteHandler(book, nil)

    rec := call(t, h.RecordContact, http.MethodPost, "/v1/contacts", `{"driver_id":"dan","channel":"telegram"}`, passenger)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "channel", decode(t, rec)["field"])

    rec = call(t, h.RecordContact, http.MethodPost, "/v1/contacts", `{"driver_id":"dan","channel":"whatsapp"}`, passenger)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    body := decode(t, rec)
    assert.Equal(t, "pat", body["passenger_id"])
    assert.Equal(t, "whatsapp", body["channel"])

    rec = call(t, h.Contacts, http.MethodGet, "/v1/contacts", "", passenger)
    assert.Len(t, decode(t, rec)["items"], 1)
}
