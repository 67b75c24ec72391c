// Package queue carries booking events over RabbitMQ.
package queue

import (
	"time"

	"github.com/iliyamo/tour-booking/internal/booking"
)

// BookingEvent is the message body published for every committed booking
// state change.  It carries enough for consumers to log or notify without
// reading the database.
type BookingEvent struct {
	Kind            string    `json:"kind"`
	BookingID       uint64    `json:"booking_id"`
	BookingNumber   string    `json:"booking_number"`
	TourID          uint64    `json:"tour_id"`
	UserID          uint64    `json:"user_id"`
	ActorID         uint64    `json:"actor_id"`
	TourDate        string    `json:"tour_date"` // YYYY-MM-DD
	PeopleCount     int       `json:"people_count"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewBookingEvent flattens ev into its wire form.
func NewBookingEvent(ev booking.Event) BookingEvent {
	b := ev.Booking
	out := BookingEvent{
		Kind:            string(ev.Kind),
		BookingID:       b.ID,
		BookingNumber:   b.BookingNumber,
		TourID:          b.TourID,
		UserID:          b.UserID,
		ActorID:         ev.ActorID,
		TourDate:        b.TourDate.Format(time.DateOnly),
		PeopleCount:     b.PeopleCount,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		OccurredAt:      ev.At.UTC(),
	}
	if b.CancellationReason != nil {
		out.Reason = *b.CancellationReason
	}
	return out
}
