// Package session carries the authenticated caller explicitly through the
// core instead of keeping the current user and role in ambient state.
package session

import (
    "errors"

    "github.com/labstack/echo/v4"

    "github.com/uniride/uniride-api/internal/model"
)

// Session identifies who is acting and in which role.
type Session struct {
    UserID string
    Role   model.Role
}

// ErrNoSession is returned when the request carries no authenticated user.
var ErrNoSession = errors.New("no authenticated session")

// Is reports whether the session acts in role r.
func (s Session) Is(r model.Role) bool { return s.Role == r }

// FromEcho builds a Session from the values stored by the JWT middleware
// under "user_id" and "role".
func FromEcho(c echo.Context) (Session, error) {
    uid, _ := c.Get("user_id").(string)
    if uid == "" {
        return Session{}, ErrNoSession
    }
    role, _ := c.Get("role").(string)
    return Session{UserID: uid, Role: model.Role(role)}, nil
}
