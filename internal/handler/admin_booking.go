package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/booking"
	"github.com/iliyamo/tour-booking/internal/model"
)

// Staff endpoints.  They share BookingHandler's allocator and run behind
// RequireRole(ADMIN, MANAGER).

// AdminList pages through all bookings.  Filters: tour_id, user_id,
// date (tour date) and status.
func (h *BookingHandler) AdminList(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	q := booking.BookingQuery{
		Status: model.BookingStatus(strings.ToLower(strings.TrimSpace(c.QueryParam("status")))),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	if q.TourID, ok = queryID(c, "tour_id"); !ok {
		return badRequest(c, "invalid tour_id")
	}
	if q.UserID, ok = queryID(c, "user_id"); !ok {
		return badRequest(c, "invalid user_id")
	}
	if raw := c.QueryParam("date"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		q.Date = d
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	page, err := h.Alloc.Bookings(ctx, actor, q)
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingPage(page))
}

// AdminConfirm confirms a pending booking.
func (h *BookingHandler) AdminConfirm(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Alloc.Confirm(ctx, id)
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// AdminCancel cancels any booking on behalf of its owner.
func (h *BookingHandler) AdminCancel(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	actor.Elevated = true
	return h.cancel(c, actor)
}

// AdminComplete marks a confirmed booking completed.
func (h *BookingHandler) AdminComplete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Alloc.Complete(ctx, id)
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// AdminReconcile recomputes a tour's cached booked_count.
func (h *BookingHandler) AdminReconcile(c echo.Context) error {
	tourID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid tour id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	n, err := h.Alloc.Reconcile(ctx, tourID)
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tour_id": tourID, "booked_count": n})
}
