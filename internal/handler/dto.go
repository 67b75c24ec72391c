package handler

import (
	"time"

	"github.com/iliyamo/tour-booking/internal/booking"
	"github.com/iliyamo/tour-booking/internal/model"
)

type bookingResp struct {
	ID                 uint64     `json:"id"`
	BookingNumber      string     `json:"booking_number"`
	TourID             uint64     `json:"tour_id"`
	UserID             uint64     `json:"user_id"`
	TourDate           string     `json:"tour_date"`
	PeopleCount        int        `json:"people_count"`
	TotalPriceCents    int64      `json:"total_price_cents"`
	Status             string     `json:"status"`
	SpecialRequests    *string    `json:"special_requests,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	BookedAt           time.Time  `json:"booked_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:                 b.ID,
		BookingNumber:      b.BookingNumber,
		TourID:             b.TourID,
		UserID:             b.UserID,
		TourDate:           b.TourDate.Format(time.DateOnly),
		PeopleCount:        b.PeopleCount,
		TotalPriceCents:    b.TotalPriceCents,
		Status:             string(b.Status),
		SpecialRequests:    b.SpecialRequests,
		CancellationReason: b.CancellationReason,
		BookedAt:           b.BookedAt,
		ConfirmedAt:        b.ConfirmedAt,
		CancelledAt:        b.CancelledAt,
		CompletedAt:        b.CompletedAt,
	}
}

type bookingPageResp struct {
	Items []bookingResp `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func toBookingPage(p booking.Page) bookingPageResp {
	items := make([]bookingResp, 0, len(p.Bookings))
	for i := range p.Bookings {
		items = append(items, toBookingResp(&p.Bookings[i]))
	}
	return bookingPageResp{Items: items, Total: p.Total, Page: p.Page, Limit: p.Limit}
}

type tourResp struct {
	ID                 uint64 `json:"id"`
	Title              string `json:"title"`
	Location           string `json:"location"`
	Description        string `json:"description,omitempty"`
	PriceCents         int64  `json:"price_cents"`
	DiscountPriceCents *int64 `json:"discount_price_cents,omitempty"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	Capacity           int    `json:"capacity"`
	BookedCount        int    `json:"booked_count"`
	Status             string `json:"status"`
}

func toTourResp(t *model.Tour) tourResp {
	return tourResp{
		ID:                 t.ID,
		Title:              t.Title,
		Location:           t.Location,
		Description:        t.Description,
		PriceCents:         t.PriceCents,
		DiscountPriceCents: t.DiscountPriceCents,
		StartDate:          t.StartDate.Format(time.DateOnly),
		EndDate:            t.EndDate.Format(time.DateOnly),
		Capacity:           t.Capacity,
		BookedCount:        t.BookedCount,
		Status:             string(t.Status),
	}
}

type availabilityResp struct {
	TourID    uint64 `json:"tour_id"`
	Date      string `json:"date"`
	People    int    `json:"people"`
	Available bool   `json:"available"`
	Remaining int    `json:"available_slots"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Reason    string `json:"reason,omitempty"`
}

type dateResp struct {
	Date      string `json:"date"`
	Booked    int    `json:"booked"`
	Remaining int    `json:"available_slots"`
}

type calendarResp struct {
	TourID         uint64     `json:"tour_id"`
	Capacity       int        `json:"capacity"`
	BookedCount    int        `json:"booked_count"`
	Reason         string     `json:"reason,omitempty"`
	AvailableDates []dateResp `json:"available_dates"`
}

// toCalendarResp keeps only the dates that still have free places.
func toCalendarResp(tourID uint64, cal booking.Calendar) calendarResp {
	out := calendarResp{
		TourID:         tourID,
		Capacity:       cal.Capacity,
		BookedCount:    cal.BookedCount,
		Reason:         cal.Reason,
		AvailableDates: make([]dateResp, 0, len(cal.Days)),
	}
	for _, d := range cal.Days {
		if d.Remaining == 0 {
			continue
		}
		out.AvailableDates = append(out.AvailableDates, dateResp{
			Date:      d.Date.Format(time.DateOnly),
			Booked:    d.Booked,
			Remaining: d.Remaining,
		})
	}
	return out
}
