package booking

import (
	"errors"
	"fmt"
)

// Validation errors.  Returned before any store access.
var (
	ErrInvalidPartyCount = errors.New("invalid party count")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidStatus     = errors.New("invalid booking status")
	ErrInvalidCapacity   = errors.New("invalid capacity")
)

// Not found errors.
var (
	ErrTourNotFound    = errors.New("tour not found")
	ErrBookingNotFound = errors.New("booking not found")
)

var (
	ErrTourNotBookable     = errors.New("tour is not open for booking")
	ErrDateOutOfRange      = errors.New("date is outside the tour schedule")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrCapacityBelowBooked = errors.New("capacity below people already booked on a date")
	ErrAlreadyCancelled    = errors.New("booking already cancelled")
	ErrUnauthorized        = errors.New("not allowed to manage this booking")
	ErrInvalidTransition   = errors.New("invalid booking status transition")

	// ErrConcurrencyConflict is reported by a Store when a transaction lost
	// a race (deadlock, lock timeout, serialization failure).  The
	// Allocator retries it and returns it once attempts are exhausted.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrDuplicateNumber is reported by a Store when a booking number
	// collided with an existing one on insert.
	ErrDuplicateNumber = errors.New("duplicate booking number")
)

// CapacityError carries the number of places still free on the
// requested date.  It matches ErrCapacityExceeded with errors.Is.
type CapacityError struct {
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %d places remaining", ErrCapacityExceeded, e.Remaining)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }

// ResizeError reports the people booked on the busiest date when a tour
// capacity would drop below it.  It matches ErrCapacityBelowBooked.
type ResizeError struct {
	Peak int
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("%s: %d people booked", ErrCapacityBelowBooked, e.Peak)
}

func (e *ResizeError) Is(target error) bool { return target == ErrCapacityBelowBooked }

// IsValidation reports whether err is caused by malformed input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPartyCount) || errors.Is(err, ErrInvalidDate) || errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidCapacity)
}

// IsNotFound reports whether err is caused by a missing tour or booking.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTourNotFound) || errors.Is(err, ErrBookingNotFound)
}

func retryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrDuplicateNumber)
}
