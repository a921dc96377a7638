package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniride/uniride-api/internal/config"
	"github.com/uniride/uniride-api/internal/handler"
	"github.com/uniride/uniride-api/internal/lifecycle"
	"github.com/uniride/uniride-api/internal/notify"
	"github.com/uniride/uniride-api/internal/store/memory"
	"github.com/uniride/uniride-api/internal/utils"
	"github.com/uniride/uniride-api/internal/validator"
)

const secret = "router-secret"

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T, uploads string) *api {
	st := memory.New()
	hub := notify.NewHub(notify.DefaultBuffer, nil)
	trips := lifecycle.New(st, st, notify.NewDispatcher(st, hub, nil, nil), nil, nil, lifecycle.Options{})

	e := echo.New()
	e.Validator = validator.New()
	Register(e, Handlers{
		Health:        handler.Health(nil, nil),
		Auth:          handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil, nil),
		Schedules:     handler.NewScheduleHandler(st, nil, nil),
		Requests:      handler.NewRequestHandler(trips, nil),
		Notifications: handler.NewNotificationHandler(st, hub, nil),
		Vehicles:      handler.NewVehicleHandler(nil, nil, nil),
		Favorites:     handler.NewFavoriteHandler(nil, nil),
	}, Options{JWTSecret: secret, UploadDir: uploads, UploadBaseURL: "/files", DocumentAccess: trips.SharesAcceptedTrip})
	return &api{t: t, e: e}
}

func token(t *testing.T, userID, role string) string {
	tok, err := utils.NewAccessToken(secret, userID, role, 15)
	require.NoError(t, err)
	return tok.Token
}

func (a *api) do(method, path, tok, body string) (int, map[string]interface{}) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestHealthIsPublic(t *testing.T) {
	code, body := newAPI(t, "").do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRoutesRequireTokenAndRole(t *testing.T) {
	a := newAPI(t, "")
	code, _ := a.do(http.MethodGet, "/v1/schedules", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodGet, "/v1/schedules", token(t, "new", ""), "")
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodGet, "/v1/drivers", token(t, "dan", "driver"), "")
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodPost, "/v1/requests/x/accept", token(t, "pat", "passenger"), "")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRequestFlowNotifiesBothParties(t *testing.T) {
	a := newAPI(t, "")
	dan, pat := token(t, "dan", "driver"), token(t, "pat", "passenger")

	code, sched := a.do(http.MethodPost, "/v1/schedules", dan,
		`{"day":"lunes","time":"07:30","origin":"residencia","destination":"universidad","seats":3}`)
	require.Equal(t, http.StatusCreated, code)
	code, _ = a.do(http.MethodPost, "/v1/schedules", pat,
		`{"day":"lunes","time":"07:45","origin":"residencia","destination":"universidad"}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := a.do(http.MethodGet, "/v1/matches", pat, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, body = a.do(http.MethodPost, "/v1/requests", pat, `{"driver_schedule_id":"`+sched["id"].(string)+`"}`)
	require.Equal(t, http.StatusCreated, code)
	id := body["request"].(map[string]interface{})["id"].(string)

	code, body = a.do(http.MethodGet, "/v1/notifications", dan, "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["unread"])

	code, _ = a.do(http.MethodPost, "/v1/requests/"+id+"/accept", dan, "")
	require.Equal(t, http.StatusOK, code)

	code, body = a.do(http.MethodGet, "/v1/notifications", pat, "")
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "trip_accepted", items[0].(map[string]interface{})["type"])
}

func TestUploadedFilesScopedToRiders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dan"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dan", "license_1.pdf"), []byte("%PDF-1.4\n"), 0o644))
	a := newAPI(t, dir)
	dan, pat, eve := token(t, "dan", "driver"), token(t, "pat", "passenger"), token(t, "eve", "passenger")
	const doc = "/files/dan/license_1.pdf"

	code, _ := a.do(http.MethodGet, doc, "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodGet, doc, dan, "")
	assert.Equal(t, http.StatusOK, code, "the uploader")

	code, _ = a.do(http.MethodGet, doc, pat, "")
	assert.Equal(t, http.StatusForbidden, code, "no trip with dan yet")

	code, _ = a.do(http.MethodGet, "/files/pat/../dan/license_1.pdf", pat, "")
	assert.NotEqual(t, http.StatusOK, code)

	code, sched := a.do(http.MethodPost, "/v1/schedules", dan,
		`{"day":"lunes","time":"07:30","origin":"residencia","destination":"universidad","seats":3}`)
	require.Equal(t, http.StatusCreated, code)
	code, body := a.do(http.MethodPost, "/v1/requests", pat, `{"driver_schedule_id":"`+sched["id"].(string)+`"}`)
	require.Equal(t, http.StatusCreated, code)
	id := body["request"].(map[string]interface{})["id"].(string)

	code, _ = a.do(http.MethodGet, doc, pat, "")
	assert.Equal(t, http.StatusForbidden, code, "pending is not enough")

	code, _ = a.do(http.MethodPost, "/v1/requests/"+id+"/accept", dan, "")
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodGet, doc, pat, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, doc, eve, "")
	assert.Equal(t, http.StatusForbidden, code)
}
