package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
)

// TourCatalog is the tour storage used by TourHandler.
type TourCatalog interface {
	List(ctx context.Context, f repository.TourFilter) ([]model.Tour, int, error)
	GetByID(ctx context.Context, id uint64) (*model.Tour, error)
	Create(ctx context.Context, t *model.Tour) error
}

// TourEditor applies tour edits under the tour's row lock, so capacity
// changes are checked against bookings that cannot move meanwhile.
// *booking.Allocator implements it.
type TourEditor interface {
	UpdateTour(ctx context.Context, t model.Tour) (*model.Tour, error)
}

// CacheInvalidator drops cached catalogue responses after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// TourHandler serves the public catalogue and the staff tour endpoints.
type TourHandler struct {
	Tours  TourCatalog
	Editor TourEditor
	Cache  CacheInvalidator // optional
	Log    *zap.Logger
}

func NewTourHandler(tours TourCatalog, editor TourEditor, cache CacheInvalidator, log *zap.Logger) *TourHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TourHandler{Tours: tours, Editor: editor, Cache: cache, Log: log}
}

// List pages through tours ordered by start date.  Filters: status, q.
func (h *TourHandler) List(c echo.Context) error {
	status := model.TourStatus(strings.ToLower(c.QueryParam("status")))
	if status != "" && !status.Valid() {
		return badRequest(c, "invalid status")
	}
	page := max(queryInt(c, "page", 1), 1)
	limit := min(max(queryInt(c, "limit", 20), 1), 100)

	ctx, cancel := requestContext(c)
	defer cancel()
	tours, total, err := h.Tours.List(ctx, repository.TourFilter{
		Status: status,
		Search: c.QueryParam("q"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		h.Log.Error("list tours", zap.Error(err))
		return internalError(c, "database error")
	}
	items := make([]tourResp, 0, len(tours))
	for i := range tours {
		items = append(items, toTourResp(&tours[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total, "page": page, "limit": limit})
}

// Get returns one tour.
func (h *TourHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid tour id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Tours.GetByID(ctx, id)
	if err != nil {
		return h.tourError(c, err)
	}
	return c.JSON(http.StatusOK, toTourResp(t))
}

type tourReq struct {
	Title              string `json:"title"`
	Location           string `json:"location"`
	Description        string `json:"description"`
	PriceCents         int64  `json:"price_cents"`
	DiscountPriceCents *int64 `json:"discount_price_cents"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	Capacity           int    `json:"capacity"`
	Status             string `json:"status"`
}

// apply validates req and copies it onto t.
func (req tourReq) apply(t *model.Tour) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return errors.New("title required")
	}
	if req.PriceCents < 0 {
		return errors.New("price_cents must not be negative")
	}
	if d := req.DiscountPriceCents; d != nil && (*d < 0 || *d > req.PriceCents) {
		return errors.New("discount_price_cents must be between 0 and price_cents")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return errors.New("start_date must be YYYY-MM-DD")
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return errors.New("end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return errors.New("end_date before start_date")
	}
	if req.Capacity < 1 {
		return errors.New("capacity must be positive")
	}
	status := model.TourStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if status == "" {
		status = model.TourAvailable
	}
	if !status.Valid() {
		return errors.New("invalid status")
	}

	t.Title = title
	t.Location = strings.TrimSpace(req.Location)
	t.Description = req.Description
	t.PriceCents = req.PriceCents
	t.DiscountPriceCents = req.DiscountPriceCents
	t.StartDate = start
	t.EndDate = end
	t.Capacity = req.Capacity
	t.Status = status
	return nil
}

// Create adds a tour.
func (h *TourHandler) Create(c echo.Context) error {
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	var t model.Tour
	if err := req.apply(&t); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Tours.Create(ctx, &t); err != nil {
		h.Log.Error("create tour", zap.Error(err))
		return internalError(c, "create tour failed")
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusCreated, toTourResp(&t))
}

// Update replaces a tour's editable fields.  Capacity cannot drop below
// the people booked on the tour's busiest date.
func (h *TourHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid tour id")
	}
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t := model.Tour{ID: id}
	if err := req.apply(&t); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	updated, err := h.Editor.UpdateTour(ctx, t)
	if err != nil {
		return bookingError(c, h.Log, err)
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, toTourResp(updated))
}

func (h *TourHandler) invalidate(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(ctx); err != nil {
		h.Log.Warn("tour cache invalidation failed", zap.Error(err))
	}
}

func (h *TourHandler) tourError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrTourNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
	}
	h.Log.Error("tour request failed", zap.String("route", c.Path()), zap.Error(err))
	return internalError(c, "database error")
}
