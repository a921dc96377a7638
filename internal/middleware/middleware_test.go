package middleware

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/uniride/uniride-api/internal/config"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, uid, role string) string {
    t.Helper()
    at, err := utils.NewAccessToken(secret, uid, role, 5)
    require.NoError(t, err)
    return at.Token
}

func whoAmI(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id"), "role": c.Get("role")})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuthHeaderAndQuery(t *testing.T) {
    e := echo.New()
    e.GET("/me", whoAmI, JWTAuth(secret))

    rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    req := httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set("Authorization", "Bearer "+token(t, "u1", "driver"))
    rec = serve(e, req)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"user_id":"u1","role":"driver"}`, rec.Body.String())

    rec = serve(e, httptest.NewRequest(http.MethodGet, "/me?access_token="+token(t, "u2", ""), nil))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"user_id":"u2","role":""}`, rec.Body.String())

    req = httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set("Authorization", "Bearer garbage")
    assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    e.GET("/driver", whoAmI, JWTAuth(secret), RequireRole(model.RoleDriver))

    cases := []struct {
        role string
        want int
    }{
        {"driver", http.StatusOK},
        {"passenger", http.StatusForbidden},
        {"", http.StatusForbidden},
    }
    for _, tc := range cases {
        req := httptest.NewRequest(http.MethodGet, "/driver", nil)
        req.Header.Set("Authorization", "Bearer "+token(t, "u1", tc.role))
        assert.Equal(t, tc.want, serve(e, req).Code, "role %q", tc.role)
    }
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    defer rdb.Close()

    cfg := config.RateLimitConfig{
        Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
        TTL: 10 * time.Minute, Prefix: "rl:test",
    }
    e := echo.New()
    e.POST("/v1/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        NewTokenBucket(cfg, rdb, nil))

    for i := 0; i < 2; i++ {
        rec := serve(e, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil))
        require.Equal(t, http.StatusNoContent, rec.Code)
        assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
    }
    rec := serve(e, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil))
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
    mr, err := miniredis.Run()
    require.NoError(t, err)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
    defer rdb.Close()
    mr.Close()

    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute, TTL: time.Hour, Prefix: "rl"}
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, nil))
    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusNoContent, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
    }
}

func TestRedisCacheKeyedPerUser(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    defer rdb.Close()

    cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}
    calls := 0
    e := echo.New()
    e.GET("/v1/drivers", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"user": c.Get("user_id"), "n": calls})
    }, JWTAuth(secret), NewRedisCache(cfg, rdb, nil))

    get := func(uid string) *httptest.ResponseRecorder {
        req := httptest.NewRequest(http.MethodGet, "/v1/drivers?day=lunes", nil)
        req.Header.Set("Authorization", "Bearer "+token(t, uid, "passenger"))
        return serve(e, req)
    }

    first := get("pat")
    assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
    second := get("pat")
    assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
    assert.JSONEq(t, first.Body.String(), second.Body.String())

    assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))

    other := get("quinn")
    assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
    assert.Equal(t, 2, calls)
}

func TestRedisCacheSkipsOversizedAndFailedPages(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    defer rdb.Close()

    cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 16}
    e := echo.New()
    e.GET("/big", func(c echo.Context) error {
        return c.String(http.StatusOK, strings.Repeat("x", 64))
    }, NewRedisCache(cfg, rdb, nil))
    e.GET("/down", func(c echo.Context) error {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "down"})
    }, NewRedisCache(cfg, rdb, nil))

    for _, path := range []string{"/big", "/down"} {
        serve(e, httptest.NewRequest(http.MethodGet, path, nil))
        rec := serve(e, httptest.NewRequest(http.MethodGet, path, nil))
        assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), path)
    }
    assert.Empty(t, mr.Keys())
}

func TestDocumentAccess(t *testing.T) {
    var allowErr error
    riders := map[string]bool{"pat>dan": true}
    allow := func(_ context.Context, viewer, owner string) (bool, error) {
        return riders[viewer+">"+owner], allowErr
    }
    e := echo.New()
    e.GET("/files/*", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        JWTAuth(secret), DocumentAccess(allow))

    get := func(path, uid string) int {
        req := httptest.NewRequest(http.MethodGet, path, nil)
        req.Header.Set("Authorization", "Bearer "+token(t, uid, "passenger"))
        return serve(e, req).Code
    }

    assert.Equal(t, http.StatusNoContent, get("/files/dan/soat_1.pdf", "dan"))
    assert.Equal(t, http.StatusNoContent, get("/files/dan/soat_1.pdf", "pat"))
    assert.Equal(t, http.StatusForbidden, get("/files/dan/soat_1.pdf", "eve"))
    assert.Equal(t, http.StatusForbidden, get("/files/eve/../dan/soat_1.pdf", "eve"))
    assert.Equal(t, http.StatusNotFound, get("/files/", "eve"))

    allowErr = errors.New("db down")
    req := httptest.NewRequest(http.MethodGet, "/files/dan/soat_1.pdf", nil)
    req.Header.Set("Authorization", "Bearer "+token(t, "eve", "passenger"))
    rec := serve(e, req)
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
    assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}
