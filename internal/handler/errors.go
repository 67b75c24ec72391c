package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tour-booking/internal/booking"
)

// bookingError writes the response for an allocator error.  Unexpected
// errors are logged and answered with 500.
func bookingError(c echo.Context, log *zap.Logger, err error) error {
	var (
		capErr    *booking.CapacityError
		resizeErr *booking.ResizeError
	)
	switch {
	case booking.IsValidation(err), errors.Is(err, booking.ErrDateOutOfRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case booking.IsNotFound(err):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.As(err, &capErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":           booking.ErrCapacityExceeded.Error(),
			"available_slots": capErr.Remaining,
		})
	case errors.As(err, &resizeErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       booking.ErrCapacityBelowBooked.Error(),
			"peak_booked": resizeErr.Peak,
		})
	case errors.Is(err, booking.ErrTourNotBookable),
		errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, booking.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrConcurrencyConflict), errors.Is(err, booking.ErrDuplicateNumber):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking is busy, try again"})
	}
	log.Error("booking request failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err))
	return internalError(c, "internal error")
}
