package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tour-booking/internal/booking"
	"github.com/iliyamo/tour-booking/internal/model"
)

// BookingHandler serves the customer booking endpoints.
type BookingHandler struct {
	Alloc *booking.Allocator
	Log   *zap.Logger
}

func NewBookingHandler(alloc *booking.Allocator, log *zap.Logger) *BookingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Alloc: alloc, Log: log}
}

type reserveReq struct {
	TourID          uint64 `json:"tour_id"`
	TourDate        string `json:"tour_date"` // YYYY-MM-DD
	PeopleCount     int    `json:"people_count"`
	SpecialRequests string `json:"special_requests"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Reserve books places on a tour date for the caller.
func (h *BookingHandler) Reserve(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.TourID == 0 {
		return badRequest(c, "tour_id required")
	}
	date, err := parseDate(req.TourDate)
	if err != nil {
		return badRequest(c, "tour_date must be YYYY-MM-DD")
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Alloc.Reserve(ctx, booking.ReserveRequest{
		TourID:          req.TourID,
		Date:            date,
		PartyCount:      req.PeopleCount,
		RequesterID:     actor.ID,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Availability reports free places on a tour date.  people defaults to 1.
func (h *BookingHandler) Availability(c echo.Context) error {
	tourID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid tour id")
	}
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	people := queryInt(c, "people", 1)

	ctx, cancel := requestContext(c)
	defer cancel()
	av, err := h.Alloc.CheckAvailability(ctx, tourID, date, people)
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, availabilityResp{
		TourID:    tourID,
		Date:      date.Format("2006-01-02"),
		People:    people,
		Available: av.Available,
		Remaining: av.Remaining,
		Capacity:  av.Capacity,
		Booked:    av.Booked,
		Reason:    av.Reason,
	})
}

// AvailableDates lists the tour's dates that still have free places.
func (h *BookingHandler) AvailableDates(c echo.Context) error {
	tourID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid tour id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	cal, err := h.Alloc.AvailableDates(ctx, tourID)
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toCalendarResp(tourID, cal))
}

// ListMine pages through the caller's bookings, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	status := model.BookingStatus(strings.ToLower(strings.TrimSpace(c.QueryParam("status"))))

	ctx, cancel := requestContext(c)
	defer cancel()
	page, err := h.Alloc.UserBookings(ctx, actor.ID, status, queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingPage(page))
}

// Get returns one booking owned by the caller.  Staff may read any booking.
func (h *BookingHandler) Get(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Alloc.Booking(ctx, id, actor)
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// GetByNumber looks a booking up by its public booking number.
func (h *BookingHandler) GetByNumber(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	number := c.Param("number")
	if strings.TrimSpace(number) == "" {
		return badRequest(c, "booking number required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Alloc.BookingByNumber(ctx, number, actor)
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Cancel cancels one of the caller's bookings.  Cancelling twice is
// answered with 409.
func (h *BookingHandler) Cancel(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	return h.cancel(c, actor)
}

func (h *BookingHandler) cancel(c echo.Context, actor booking.Actor) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req cancelReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Alloc.Cancel(ctx, booking.CancelRequest{BookingID: id, Actor: actor, Reason: req.Reason})
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}
