package handler

import (
    "context"
    "errors"
    "net/http"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/uniride/uniride-api/internal/lifecycle"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/store/memory"
)

type notifierFunc func(context.Context, *model.Notification) error

func (f notifierFunc) Notify(ctx context.Context, n *model.Notification) error { return f(ctx, n) }

type nameBook map[string]string

func (b nameBook) DisplayName(_ context.Context, id string) (string, error) { return b[id], nil }

type requestFixture struct {
    store     *memory.Store
    h         *RequestHandler
    schedule  model.Schedule
    notifyErr error
}

func newRequestFixture(t *testing.T) *requestFixture {
    f := &requestFixture{store: memory.New()}
    n := notifierFunc(func(context.Context, *model.Notification) error { return f.notifyErr })
    svc := lifecycle.New(f.store, f.store, n, nameBook{"pat": "Patricia"}, nil, lifecycle.Options{})
    f.h = NewRequestHandler(svc, nil)
    f.schedule = seed(t, f.store, driverAt("dan", "08:00"))
    return f
}

func (f *requestFixture) create(t *testing.T) string {
    t.Helper()
    rec := call(t, f.h.Create, http.MethodPost, "/v1/requests", `{"driver_schedule_id":"`+f.schedule.ID+`"}`, passenger)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    req := decode(t, rec)["request"].(map[string]interface{})
    return req["id"].(string)
}

func TestRequestCreate(t *testing.T) {
    f := newRequestFixture(t)
    rec := call(t, f.h.Create, http.MethodPost, "/v1/requests",
        `{"driver_schedule_id":"`+f.schedule.ID+`","message":"Salgo de la portería"}`, passenger)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

    body := decode(t, rec)
    assert.NotContains(t, body, "warning")
    req := body["request"].(map[string]interface{})
    assert.Equal(t, "pending", req["state"])
    assert.Equal(t, "dan", req["driver_id"])
    assert.Equal(t, "Salgo de la portería", req["message"])

    again := call(t, f.h.Create, http.MethodPost, "/v1/requests", `{"driver_schedule_id":"`+f.schedule.ID+`"}`, passenger)
    assert.Equal(t, http.StatusConflict, again.Code)
}

func TestRequestCreateErrors(t *testing.T) {
    f := newRequestFixture(t)

    rec := call(t, f.h.Create, http.MethodPost, "/v1/requests", `{}`, passenger)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "driver_schedule_id", decode(t, rec)["field"])

    rec = call(t, f.h.Create, http.MethodPost, "/v1/requests", `{"driver_schedule_id":"missing"}`, passenger)
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec = call(t, f.h.Create, http.MethodPost, "/v1/requests", `{"driver_schedule_id":"`+f.schedule.ID+`"}`, driver)
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = call(t, f.h.Create, http.MethodPost, "/v1/requests", `{"driver_schedule_id":"x"}`, anon)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestCreateWarnsWhenNotificationFails(t *testing.T) {
    f := newRequestFixture(t)
    f.notifyErr = errors.New("notifications table locked")

    rec := call(t, f.h.Create, http.MethodPost, "/v1/requests", `{"driver_schedule_id":"`+f.schedule.ID+`"}`, passenger)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    body := decode(t, rec)
    assert.Contains(t, body["warning"], "could not be delivered")
    assert.Equal(t, "pending", body["request"].(map[string]interface{})["state"])
}

func TestRequestTransitions(t *testing.T) {
    f := newRequestFixture(t)
    id := f.create(t)

    rec := call(t, f.h.Accept, http.MethodPost, "/", "", passenger, "id", id)
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = call(t, f.h.Accept, http.MethodPost, "/", "", driver, "id", id)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, "accepted", decode(t, rec)["request"].(map[string]interface{})["state"])

    rec = call(t, f.h.Reject, http.MethodPost, "/", "", driver, "id", id)
    assert.Equal(t, http.StatusConflict, rec.Code)

    rec = call(t, f.h.Cancel, http.MethodPost, "/", "", passenger, "id", id)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "cancelled", decode(t, rec)["request"].(map[string]interface{})["state"])

    rec = call(t, f.h.Accept, http.MethodPost, "/", "", driver, "id", "missing")
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestListByRole(t *testing.T) {
    f := newRequestFixture(t)
    id := f.create(t)

    rec := call(t, f.h.List, http.MethodGet, "/v1/requests", "", driver)
    require.Equal(t, http.StatusOK, rec.Code)
    items := decode(t, rec)["items"].([]interface{})
    require.Len(t, items, 1)
    assert.Equal(t, id, items[0].(map[string]interface{})["id"])

    rec = call(t, f.h.List, http.MethodGet, "/v1/requests", "", passenger)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Len(t, decode(t, rec)["items"], 1)

    rec = call(t, f.h.Reject, http.MethodPost, "/", "", driver, "id", id)
    require.Equal(t, http.StatusOK, rec.Code)
    rec = call(t, f.h.List, http.MethodGet, "/v1/requests", "", passenger)
    assert.Len(t, decode(t, rec)["items"], 0)

    noRole := passenger
    noRole.Role = model.RoleNone
    rec = call(t, f.h.List, http.MethodGet, "/v1/requests", "", noRole)
    assert.Equal(t, http.StatusForbidden, rec.Code)
}
