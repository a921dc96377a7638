package router

import (
	"github.com/labstack/echo/v4"

	"github.com/uniride/uniride-api/internal/handler"
	"github.com/uniride/uniride-api/internal/middleware"
	"github.com/uniride/uniride-api/internal/model"
)

// RegisterDriver registers vehicle registration.
func RegisterDriver(v1 *echo.Group, v *handler.VehicleHandler) {
	g := v1.Group("/vehicles", middleware.RequireRole(model.RoleDriver))
	g.GET("", v.List)
	g.POST("", v.Create)
}

// RegisterFiles serves uploaded vehicle documents under the public URL
// prefix they were saved with.  The uploader can always read them; other
// users need opt.DocumentAccess to agree.
func RegisterFiles(e *echo.Echo, opt Options) {
	if opt.UploadDir == "" || opt.UploadBaseURL == "" {
		return
	}
	files := e.Group(opt.UploadBaseURL, middleware.JWTAuth(opt.JWTSecret), middleware.DocumentAccess(opt.DocumentAccess))
	files.Static("/", opt.UploadDir)
}

// RegisterPassenger registers favourites and contact history.
func RegisterPassenger(v1 *echo.Group, f *handler.FavoriteHandler) {
	passenger := middleware.RequireRole(model.RolePassenger)

	fg := v1.Group("/favorites", passenger)
	fg.GET("", f.List)
	fg.POST("/:driver_id/toggle", f.Toggle)

	cg := v1.Group("/contacts", passenger)
	cg.GET("", f.Contacts)
	cg.POST("", f.RecordContact)
}
