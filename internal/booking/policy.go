package booking

import (
	"fmt"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// Policy holds the tunable business rules of the allocator.
type Policy struct {
	MaxPartySize  int                 // largest party accepted by Reserve
	InitialStatus model.BookingStatus // status given to new bookings (pending or confirmed)
	CountPending  bool                // pending bookings hold capacity
	NumberPrefix  string              // booking number prefix, e.g. CT
	MaxAttempts   int                 // transaction attempts on conflict
	RetryBackoff  time.Duration       // base delay between attempts, grows linearly
}

// DefaultPolicy books straight into confirmed and counts only confirmed
// bookings against capacity.
func DefaultPolicy() Policy {
	return Policy{
		MaxPartySize:  20,
		InitialStatus: model.BookingConfirmed,
		CountPending:  false,
		NumberPrefix:  "CT",
		MaxAttempts:   3,
		RetryBackoff:  50 * time.Millisecond,
	}
}

// Validate checks that p can be used by an Allocator.
func (p Policy) Validate() error {
	if p.MaxPartySize < 1 {
		return fmt.Errorf("max party size must be positive, got %d", p.MaxPartySize)
	}
	if p.InitialStatus != model.BookingPending && p.InitialStatus != model.BookingConfirmed {
		return fmt.Errorf("initial status must be pending or confirmed, got %q", p.InitialStatus)
	}
	if p.NumberPrefix == "" {
		return fmt.Errorf("booking number prefix is empty")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be positive, got %d", p.MaxAttempts)
	}
	if p.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must not be negative")
	}
	return nil
}

// CountedStatuses lists the booking statuses whose people count against
// a date's capacity.
func (p Policy) CountedStatuses() []model.BookingStatus {
	if p.CountPending {
		return []model.BookingStatus{model.BookingConfirmed, model.BookingPending}
	}
	return []model.BookingStatus{model.BookingConfirmed}
}

// ActiveStatuses lists the statuses that contribute to a tour's cached
// booked_count.  Reserve increments the cache for every new booking, so
// pending bookings are always included here.
func ActiveStatuses() []model.BookingStatus {
	return []model.BookingStatus{model.BookingPending, model.BookingConfirmed}
}
