package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/middleware"
)

// RegisterRoutes registers the infrastructure endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, metrics http.Handler) {
	e.GET("/healthz", handler.Health(db))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the account endpoints.  Register, login, refresh
// and logout need no session; /v1/me does.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated catalogue.  Tour reads go
// through the response cache; availability and the date calendar are
// always computed live.
func RegisterPublic(e *echo.Echo, t *handler.TourHandler, b *handler.BookingHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/tours", t.List, cache)
	e.GET("/v1/tours/:id", t.Get, cache)
	e.GET("/v1/tours/:id/availability", b.Availability)
	e.GET("/v1/tours/:id/available-dates", b.AvailableDates)
}
