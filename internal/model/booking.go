package model

import "time"

// BookingStatus is the state of a booking as stored in bookings.status.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Valid reports whether s is one of the known booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Booking records a customer's reservation of PeopleCount places on a
// tour for one date.  TotalPriceCents is captured when the booking is
// created and is never recomputed from the tour afterwards.
//
// Fields:
//  ID                 – primary key identifier.
//  BookingNumber      – unique human-facing identifier (PREFIX-YYMMDD-RANDOM).
//  TourID             – tour being booked.
//  UserID             – customer who owns the booking.
//  TourDate           – calendar date the tour is taken on.
//  PeopleCount        – party size.
//  TotalPriceCents    – unit price × party size at booking time.
//  Status             – pending, confirmed, cancelled or completed.
//  SpecialRequests    – optional free text from the customer.
//  CancellationReason – reason given on cancellation (nullable).
//  BookedAt           – creation timestamp.
//  ConfirmedAt        – set on transition to confirmed.
//  CancelledAt        – set on transition to cancelled.
//  CompletedAt        – set on transition to completed.
//  UpdatedAt          – last update timestamp.
type Booking struct {
	ID                 uint64        // bookings.id
	BookingNumber      string        // bookings.booking_number
	TourID             uint64        // bookings.tour_id
	UserID             uint64        // bookings.user_id
	TourDate           time.Time     // bookings.tour_date
	PeopleCount        int           // bookings.people_count
	TotalPriceCents    int64         // bookings.total_price_cents
	Status             BookingStatus // bookings.status
	SpecialRequests    *string       // bookings.special_requests (nullable)
	CancellationReason *string       // bookings.cancellation_reason (nullable)
	BookedAt           time.Time     // bookings.booked_at
	ConfirmedAt        *time.Time    // bookings.confirmed_at (nullable)
	CancelledAt        *time.Time    // bookings.cancelled_at (nullable)
	CompletedAt        *time.Time    // bookings.completed_at (nullable)
	UpdatedAt          time.Time     // bookings.updated_at
}
