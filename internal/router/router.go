package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/uniride/uniride-api/internal/handler"
	"github.com/uniride/uniride-api/internal/middleware"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Health        echo.HandlerFunc
	Auth          *handler.AuthHandler
	Schedules     *handler.ScheduleHandler
	Requests      *handler.RequestHandler
	Notifications *handler.NotificationHandler
	Vehicles      *handler.VehicleHandler
	Favorites     *handler.FavoriteHandler
}

// Options carries the middleware and settings shared by the route groups.
// Nil middleware are skipped.
type Options struct {
	JWTSecret     string
	RateLimit     echo.MiddlewareFunc // every /v1 route
	AuthRateLimit echo.MiddlewareFunc // register, login, refresh
	BrowseCache   echo.MiddlewareFunc // driver browse only
	UploadDir     string
	UploadBaseURL string

	// DocumentAccess decides who besides the uploader may read a
	// document.  Nil leaves documents to their owners.
	DocumentAccess middleware.DocumentAccessFunc
}

// Register mounts the whole API on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	RegisterRoutes(e, h.Health)
	RegisterAuth(e, h.Auth, opt)

	v1 := e.Group("/v1", middleware.JWTAuth(opt.JWTSecret), use(opt.RateLimit))
	RegisterAccount(v1, h.Auth)
	RegisterRides(v1, h.Schedules, h.Requests, opt)
	RegisterNotifications(v1, h.Notifications)
	RegisterDriver(v1, h.Vehicles)
	RegisterPassenger(v1, h.Favorites)
	RegisterFiles(e, opt)
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers the token endpoints under /v1/auth.  Register,
// login and refresh share the stricter per-IP bucket; logout accepts
// either a refresh token or a bearer and needs no JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opt Options) {
	g := e.Group("/v1/auth", use(opt.RateLimit))
	limited := use(opt.AuthRateLimit)
	g.POST("/register", a.Register, limited)
	g.POST("/login", a.Login, limited)
	g.POST("/refresh", a.Refresh, limited)
	g.POST("/logout", a.Logout)
}

// RegisterAccount registers the caller's own account endpoints.  They are
// open to users that have not picked a role yet.
func RegisterAccount(v1 *echo.Group, a *handler.AuthHandler) {
	v1.GET("/me", a.Me)
	v1.DELETE("/me", a.Deactivate)
	v1.PUT("/me/role", a.SetRole)
	v1.PATCH("/me/profile", a.UpdateProfile)
	v1.PUT("/me/password", a.ChangePassword)
}

// use returns mw, or a pass-through when mw is nil.
func use(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw != nil {
		return mw
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}
