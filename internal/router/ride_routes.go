package router

import (
	"github.com/labstack/echo/v4"

	"github.com/uniride/uniride-api/internal/handler"
	"github.com/uniride/uniride-api/internal/middleware"
	"github.com/uniride/uniride-api/internal/model"
)

// RegisterRides registers schedules, matching, driver browse and trip
// requests.  Schedules and matches act on the caller's current role;
// request transitions are limited to the party allowed to make them.
func RegisterRides(v1 *echo.Group, s *handler.ScheduleHandler, r *handler.RequestHandler, opt Options) {
	anyRole := middleware.RequireRole(model.RoleDriver, model.RolePassenger)
	driver := middleware.RequireRole(model.RoleDriver)
	passenger := middleware.RequireRole(model.RolePassenger)

	sg := v1.Group("/schedules", anyRole)
	sg.GET("", s.List)
	sg.POST("", s.Create)
	sg.PUT("/:id", s.Replace)
	sg.DELETE("/:id", s.Delete)

	v1.GET("/matches", s.Matches, anyRole)
	v1.GET("/drivers", s.Drivers, passenger, use(opt.BrowseCache))

	rg := v1.Group("/requests", anyRole)
	rg.GET("", r.List)
	rg.POST("", r.Create, passenger)
	rg.POST("/:id/accept", r.Accept, driver)
	rg.POST("/:id/reject", r.Reject, driver)
	rg.POST("/:id/cancel", r.Cancel, passenger)
}

// RegisterNotifications registers the notification list, read marker and
// WebSocket stream.  The stream takes its token from ?access_token= when
// the client cannot send headers.
func RegisterNotifications(v1 *echo.Group, n *handler.NotificationHandler) {
	g := v1.Group("/notifications")
	g.GET("", n.List)
	g.POST("/:id/read", n.MarkRead)
	g.GET("/stream", n.Stream)
}
