package model

import "time"

// TourStatus is the lifecycle state of a tour as stored in tours.status.
type TourStatus string

const (
	TourUpcoming    TourStatus = "upcoming"
	TourAvailable   TourStatus = "available"
	TourFullyBooked TourStatus = "fully_booked"
	TourCancelled   TourStatus = "cancelled"
	TourCompleted   TourStatus = "completed"
)

// Valid reports whether s is one of the known tour statuses.
func (s TourStatus) Valid() bool {
	switch s {
	case TourUpcoming, TourAvailable, TourFullyBooked, TourCancelled, TourCompleted:
		return true
	}
	return false
}

// Bookable reports whether new bookings may be taken for a tour in this status.
func (s TourStatus) Bookable() bool {
	return s == TourUpcoming || s == TourAvailable
}

// Tour is a bookable travel product.  Capacity is the number of people
// the tour can host on any single date between StartDate and EndDate.
//
// Fields:
//  ID                 – primary key identifier.
//  Title              – display title.
//  Location           – free-form destination.
//  Description        – long description (may be empty).
//  PriceCents         – regular price per person in cents.
//  DiscountPriceCents – discounted price per person (nullable).
//  StartDate          – first date the tour runs (UTC midnight).
//  EndDate            – last date the tour runs (UTC midnight).
//  Capacity           – people per date.
//  BookedCount        – cached count of people holding active bookings.
//  Status             – lifecycle status.
type Tour struct {
	ID                 uint64     // tours.id
	Title              string     // tours.title
	Location           string     // tours.location
	Description        string     // tours.description
	PriceCents         int64      // tours.price_cents
	DiscountPriceCents *int64     // tours.discount_price_cents (nullable)
	StartDate          time.Time  // tours.start_date
	EndDate            time.Time  // tours.end_date
	Capacity           int        // tours.capacity
	BookedCount        int        // tours.booked_count
	Status             TourStatus // tours.status
	CreatedAt          time.Time  // tours.created_at
	UpdatedAt          time.Time  // tours.updated_at
}

// UnitPriceCents is the per-person price charged for new bookings.
func (t *Tour) UnitPriceCents() int64 {
	if t.DiscountPriceCents != nil {
		return *t.DiscountPriceCents
	}
	return t.PriceCents
}

// Covers reports whether the calendar date d falls inside the tour's
// schedule, both ends inclusive.
func (t *Tour) Covers(d time.Time) bool {
	day := DateOf(d)
	return !day.Before(DateOf(t.StartDate)) && !day.After(DateOf(t.EndDate))
}

// DateOf truncates t to the calendar date it falls on in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
