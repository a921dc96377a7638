package handler

import (
    "context"
    "database/sql"
    "encoding/json"
    "net/http"
    "strconv"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"

    "github.com/uniride/uniride-api/internal/config"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/repository"
    "github.com/uniride/uniride-api/internal/session"
    "github.com/uniride/uniride-api/internal/utils"
)

type userBook struct {
    mu    sync.Mutex
    byID  map[string]model.User
    count int
}

func newUserBook() *userBook { return &userBook{byID: make(map[string]model.User)} }

func (b *userBook) Create(_ context.Context, email, password, fullName string, cost int) (string, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    for _, u := range b.byID {
        if u.Email == email {
            return "", repository.ErrEmailExists
        }
    }
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return "", err
    }
    b.count++
    id := "u" + strconv.Itoa(b.count)
    b.byID[id] = model.User{ID: id, Email: email, FullName: fullName, PasswordHash: hash, IsActive: true}
    return id, nil
}

func (b *userBook) GetByEmail(_ context.Context, email string) (model.User, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    for _, u := range b.byID {
        if u.Email == email {
            return u, nil
        }
    }
    return model.User{}, repository.ErrNotFound
}

func (b *userBook) GetByID(_ context.Context, id string) (model.User, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    u, ok := b.byID[id]
    if !ok {
        return model.User{}, repository.ErrNotFound
    }
    return u, nil
}

func (b *userBook) update(id string, fn func(*model.User)) error {
    b.mu.Lock()
    defer b.mu.Unlock()
    u, ok := b.byID[id]
    if !ok || !u.IsActive {
        return repository.ErrNotFound
    }
    fn(&u)
    b.byID[id] = u
    return nil
}

func (b *userBook) SetRole(_ context.Context, id string, role model.Role) error {
    return b.update(id, func(u *model.User) { u.Role = role })
}

func (b *userBook) SetPassword(_ context.Context, id, password string, cost int) error {
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return err
    }
    return b.update(id, func(u *model.User) { u.PasswordHash = hash })
}

func (b *userBook) UpdateProfile(_ context.Context, id string, p repository.ProfileUpdate) error {
    return b.update(id, func(u *model.User) {
        if p.FullName != nil {
            u.FullName = *p.FullName
        }
        if p.Zone != nil {
            u.Zone = p.Zone
        }
        if p.Age != nil {
            u.Age = *p.Age
        }
    })
}

func (b *userBook) Deactivate(_ context.Context, id string) error {
    return b.update(id, func(u *model.User) { u.IsActive = false })
}

type tokenBook struct {
    mu     sync.Mutex
    owners map[string]string
}

func newTokenBook() *tokenBook { return &tokenBook{owners: make(map[string]string)} }

func (b *tokenBook) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
    b.mu.Lock()
    defer b.mu.Unlock()
    b.owners[hash] = userID
    return nil
}

func (b *tokenBook) ValidateRefresh(_ context.Context, hash string) (string, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    uid, ok := b.owners[hash]
    if !ok {
        return "", sql.ErrNoRows
    }
    return uid, nil
}

func (b *tokenBook) RevokeByHash(_ context.Context, hash string) error {
    b.mu.Lock()
    defer b.mu.Unlock()
    delete(b.owners, hash)
    return nil
}

func (b *tokenBook) RevokeAllForUser(_ context.Context, userID string) error {
    b.mu.Lock()
    defer b.mu.Unlock()
    for h, uid := range b.owners {
        if uid == userID {
            delete(b.owners, h)
        }
    }
    return nil
}

func (b *tokenBook) live() int {
    b.mu.Lock()
    defer b.mu.Unlock()
    return len(b.owners)
}

const testSecret = "test-secret"

func newAuthHandler() (*AuthHandler, *userBook, *tokenBook) {
    cfg := config.Config{
        JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7,
        BcryptCost: bcrypt.MinCost, EmailDomain: "correounivalle.edu.co",
    }
    users, tokens := newUserBook(), newTokenBook()
    return NewAuthHandler(cfg, users, tokens, nil), users, tokens
}

func register(t *testing.T, h *AuthHandler, email string) authResp {
    t.Helper()
    rec := call(t, h.Register, http.MethodPost, "/v1/auth/register",
        `{"email":"`+email+`","password":"secreto1","full_name":"Daniela Ruiz"}`, anon)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var resp authResp
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    return resp
}

func sessionOf(t *testing.T, resp authResp) session.Session {
    t.Helper()
    claims, err := utils.ParseAccessToken(testSecret, resp.Access.Token)
    require.NoError(t, err)
    return session.Session{UserID: claims.UserID, Role: model.Role(claims.Role)}
}

func TestRegisterEnforcesDomain(t *testing.T) {
    h, _, _ := newAuthHandler()
    rec := call(t, h.Register, http.MethodPost, "/v1/auth/register",
        `{"email":"dan@gmail.com","password":"secreto1","full_name":"Dan"}`, anon)
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.Equal(t, "Solo se permiten correos de @correounivalle.edu.co", decode(t, rec)["error"])

    rec = call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"dan@gmail.com","password":"secreto1"}`, anon)
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterIssuesRolelessTokens(t *testing.T) {
    h, _, tokens := newAuthHandler()
    resp := register(t, h, "Dan@CorreoUnivalle.edu.co")

    assert.Equal(t, "dan@correounivalle.edu.co", resp.User.Email)
    assert.Equal(t, model.RoleNone, resp.User.Role)
    assert.NotEmpty(t, resp.Refresh.Token)
    assert.Equal(t, 1, tokens.live())
    assert.Equal(t, model.RoleNone, sessionOf(t, resp).Role)

    rec := call(t, h.Register, http.MethodPost, "/v1/auth/register",
        `{"email":"dan@correounivalle.edu.co","password":"secreto1","full_name":"Otra"}`, anon)
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
    h, _, _ := newAuthHandler()
    rec := call(t, h.Register, http.MethodPost, "/v1/auth/register",
        `{"email":"dan@correounivalle.edu.co","password":"123","full_name":"Dan"}`, anon)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "password", decode(t, rec)["field"])
}

func TestLogin(t *testing.T) {
    h, users, _ := newAuthHandler()
    resp := register(t, h, "dan@correounivalle.edu.co")

    rec := call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"dan@correounivalle.edu.co","password":"wrong!"}`, anon)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    rec = call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"nadie@correounivalle.edu.co","password":"secreto1"}`, anon)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"dan@correounivalle.edu.co","password":"secreto1"}`, anon)
    assert.Equal(t, http.StatusOK, rec.Code)

    require.NoError(t, users.Deactivate(context.Background(), resp.User.ID))
    rec = call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"dan@correounivalle.edu.co","password":"secreto1"}`, anon)
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
    h, _, tokens := newAuthHandler()
    resp := register(t, h, "dan@correounivalle.edu.co")
    body := `{"refresh_token":"` + resp.Refresh.Token + `"}`

    rec := call(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", body, anon)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, 1, tokens.live())

    rec = call(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", body, anon)
    assert.Equal(t, http.StatusUnauthorized, rec.Code, "a refresh token is single use")

    rec = call(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", `{}`, anon)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetRoleReissuesTokens(t *testing.T) {
    h, _, tokens := newAuthHandler()
    resp := register(t, h, "dan@correounivalle.edu.co")
    me := sessionOf(t, resp)

    rec := call(t, h.SetRole, http.MethodPut, "/v1/me/role", `{"role":"pilot"}`, me)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = call(t, h.SetRole, http.MethodPut, "/v1/me/role", `{"role":"driver"}`, me)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var next authResp
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
    assert.Equal(t, model.RoleDriver, next.User.Role)
    assert.Equal(t, model.RoleDriver, sessionOf(t, next).Role)
    assert.Equal(t, 1, tokens.live(), "the roleless refresh token is revoked")

    rec = call(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+resp.Refresh.Token+`"}`, anon)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileAndPassword(t *testing.T) {
    h, _, tokens := newAuthHandler()
    resp := register(t, h, "dan@correounivalle.edu.co")
    me := sessionOf(t, resp)

    rec := call(t, h.UpdateProfile, http.MethodPatch, "/v1/me/profile", `{"zone":"Meléndez","age":21}`, me)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    body := decode(t, rec)
    assert.Equal(t, "Meléndez", body["zone"])
    assert.Equal(t, "Daniela Ruiz", body["full_name"])
    assert.NotContains(t, body, "PasswordHash")

    rec = call(t, h.UpdateProfile, http.MethodPatch, "/v1/me/profile", `{"age":3}`, me)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = call(t, h.ChangePassword, http.MethodPut, "/v1/me/password", `{"current_password":"nope!!","new_password":"nuevo123"}`, me)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = call(t, h.ChangePassword, http.MethodPut, "/v1/me/password", `{"current_password":"secreto1","new_password":"nuevo123"}`, me)
    require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
    assert.Zero(t, tokens.live())

    rec = call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"dan@correounivalle.edu.co","password":"nuevo123"}`, anon)
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutAndDeactivate(t *testing.T) {
    h, _, tokens := newAuthHandler()
    resp := register(t, h, "dan@correounivalle.edu.co")
    me := sessionOf(t, resp)

    rec := call(t, h.Logout, http.MethodPost, "/v1/auth/logout", `{"refresh_token":"`+resp.Refresh.Token+`"}`, anon)
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.Zero(t, tokens.live())

    rec = call(t, h.Logout, http.MethodPost, "/v1/auth/logout", `{"refresh_token":"`+resp.Refresh.Token+`"}`, anon)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    assert.Equal(t, http.StatusNoContent, call(t, h.Deactivate, http.MethodDelete, "/v1/me", "", me).Code)
    assert.Equal(t, http.StatusNotFound, call(t, h.Deactivate, http.MethodDelete, "/v1/me", "", me).Code)
}
