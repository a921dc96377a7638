package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/repository"
    "github.com/uniride/uniride-api/internal/utils"
)

type roleReq struct {
    Role string `json:"role" validate:"required,role"`
}

type profileReq struct {
    FullName    *string `json:"full_name" validate:"omitempty,min=1,max=120"`
    Phone       *string `json:"phone" validate:"omitempty,max=20"`
    StudentCode *string `json:"student_code" validate:"omitempty,max=20"`
    Career      *string `json:"career" validate:"omitempty,max=120"`
    Age         *int    `json:"age" validate:"omitempty,min=14,max=100"`
    Sex         *string `json:"sex" validate:"omitempty,max=20"`
    Zone        *string `json:"zone" validate:"omitempty,max=120"`
}

type passwordReq struct {
    Current string `json:"current_password" validate:"required"`
    New     string `json:"new_password" validate:"required,min=6"`
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, sess.UserID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, u)
}

// SetRole stores the role the user acts in and returns a fresh token pair
// carrying it.  Older refresh tokens are revoked since their role claim
// is stale.
func (h *AuthHandler) SetRole(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    var req roleReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, h.Log, err)
    }
    role := model.Role(req.Role)
    if !role.Valid() {
        return fail(c, h.Log, apperr.Invalid("role", "must be driver or passenger"))
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    if err := h.Users.SetRole(ctx, sess.UserID, role); err != nil {
        return fail(c, h.Log, err)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, sess.UserID); err != nil {
        return fail(c, h.Log, err)
    }
    u, err := h.Users.GetByID(ctx, sess.UserID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return fail(c, h.Log, err)
    }
    h.Log.Info("role changed", zap.String("user_id", sess.UserID), zap.String("role", string(role)))
    return c.JSON(http.StatusOK, resp)
}

// UpdateProfile applies the fields present in the body.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    var req profileReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, h.Log, err)
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    err = h.Users.UpdateProfile(ctx, sess.UserID, repository.ProfileUpdate{
        FullName: req.FullName, Phone: req.Phone, StudentCode: req.StudentCode,
        Career: req.Career, Age: req.Age, Sex: req.Sex, Zone: req.Zone,
    })
    if err != nil {
        return fail(c, h.Log, err)
    }
    u, err := h.Users.GetByID(ctx, sess.UserID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, u)
}

// ChangePassword replaces the password after checking the current one and
// signs the user out everywhere else.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    var req passwordReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, h.Log, err)
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, sess.UserID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Current) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is incorrect"})
    }
    if err := h.Users.SetPassword(ctx, sess.UserID, req.New, h.Cfg.BcryptCost); err != nil {
        return fail(c, h.Log, err)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, sess.UserID); err != nil {
        return fail(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Deactivate soft-deletes the caller's account and schedules and revokes
// every refresh token.
func (h *AuthHandler) Deactivate(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    if err := h.Users.Deactivate(ctx, sess.UserID); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found or already deactivated"})
        }
        return fail(c, h.Log, err)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, sess.UserID); err != nil {
        return fail(c, h.Log, err)
    }
    h.Log.Info("account deactivated", zap.String("user_id", sess.UserID))
    return c.NoContent(http.StatusNoContent)
}
