package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/middleware"
)

// RegisterCustomer registers the booking endpoints of signed-in users.
// Any role may book; ownership is checked by the allocator.  limit guards
// booking creation.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings", middleware.JWTAuth(jwtSecret))
	g.POST("", h.Reserve, limit)
	g.GET("", h.ListMine)
	g.GET("/number/:number", h.GetByNumber)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel)
}
