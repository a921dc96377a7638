package handler

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/config"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/repository"
    "github.com/uniride/uniride-api/internal/utils"
)

// UserStore is the account persistence the auth and account endpoints use.
type UserStore interface {
    Create(ctx context.Context, email, password, fullName string, cost int) (string, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id string) (model.User, error)
    SetRole(ctx context.Context, id string, role model.Role) error
    SetPassword(ctx context.Context, id, password string, cost int) error
    UpdateProfile(ctx context.Context, id string, p repository.ProfileUpdate) error
    Deactivate(ctx context.Context, id string) error
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID string, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID string) error
}

// AuthHandler bundles dependencies for auth and account endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
    Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, log *zap.Logger) *AuthHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log.Named("auth")}
}

// ----- DTOs -----

type registerReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required,min=6"`
    FullName string `json:"full_name" validate:"required,max=120"`
}
type loginReq struct {
    Email    string `json:"email" validate:"required"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID       string     `json:"id"`
    Email    string     `json:"email"`
    FullName string     `json:"full_name"`
    Role     model.Role `json:"role"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// allowedEmail reports whether email belongs to the institutional domain.
func (h *AuthHandler) allowedEmail(email string) bool {
    return h.Cfg.EmailDomain == "" || strings.HasSuffix(email, "@"+h.Cfg.EmailDomain)
}

func (h *AuthHandler) domainError(c echo.Context) error {
    return c.JSON(http.StatusForbidden, echo.Map{"error": "Solo se permiten correos de @" + h.Cfg.EmailDomain})
}

// issue mints an access token and a stored refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, err
    }
    return authResp{
        User:    userPart{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    }, nil
}

// Register creates a user without a role and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, h.Log, err)
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if !h.allowedEmail(req.Email) {
        return h.domainError(c)
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Email, req.Password, req.FullName, h.Cfg.BcryptCost)
    if err != nil {
        return fail(c, h.Log, err)
    }
    resp, err := h.issue(ctx, model.User{ID: uid, Email: req.Email, FullName: strings.TrimSpace(req.FullName)})
    if err != nil {
        return fail(c, h.Log, err)
    }
    h.Log.Info("user registered", zap.String("user_id", uid))
    return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, h.Log, err)
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if !h.allowedEmail(req.Email) {
        return h.domainError(c)
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if err != nil {
        return fail(c, h.Log, err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if !u.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account deactivated"})
    }

    resp, err := h.issue(ctx, u)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, resp)
}

// Refresh validates by hash, revokes the old token and issues a new pair.
// The role claim is re-read from the user row.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := requestCtx(c)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if errors.Is(err, sql.ErrNoRows) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    if err != nil {
        return fail(c, h.Log, err)
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return fail(c, h.Log, err)
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := requestCtx(c)
    defer cancel()

    if refreshToken != "" {
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return fail(c, h.Log, err)
        }
        return c.NoContent(http.StatusNoContent)
    }

    auth := c.Request().Header.Get("Authorization")
    if strings.HasPrefix(auth, "Bearer ") {
        claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
        if err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
        }
        if err := h.Tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
            return fail(c, h.Log, err)
        }
        return c.NoContent(http.StatusNoContent)
    }
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}
