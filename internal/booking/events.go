package booking

import (
	"context"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// EventKind names a booking state change.  The values double as message
// routing keys.
type EventKind string

const (
	EventReserved  EventKind = "booking.reserved"
	EventConfirmed EventKind = "booking.confirmed"
	EventCancelled EventKind = "booking.cancelled"
	EventCompleted EventKind = "booking.completed"
)

// Event describes a committed booking state change.
type Event struct {
	Kind    EventKind
	Booking model.Booking
	ActorID uint64
	At      time.Time
}

// Notifier receives events after their transaction has committed.
// Errors are logged by the allocator and otherwise ignored.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }
