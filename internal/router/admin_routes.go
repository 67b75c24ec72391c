package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/model"
)

// RegisterAdmin registers staff endpoints under /v1/admin.  They require
// the ADMIN or MANAGER role.
func RegisterAdmin(e *echo.Echo, b *handler.BookingHandler, t *handler.TourHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleManager),
	)
	g.GET("/bookings", b.AdminList)
	g.POST("/bookings/:id/confirm", b.AdminConfirm)
	g.POST("/bookings/:id/cancel", b.AdminCancel)
	g.POST("/bookings/:id/complete", b.AdminComplete)

	g.POST("/tours", t.Create)
	g.PUT("/tours/:id", t.Update)
	g.POST("/tours/:id/reconcile", b.AdminReconcile)
}
