package booking

import (
	"context"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// Store is the persistence boundary of the allocator: the tour capacity
// store and the booking ledger behind one transactional interface.
//
// Lookups return ErrTourNotFound or ErrBookingNotFound for missing rows.
// InTx reports lost races as ErrConcurrencyConflict and booking number
// collisions as ErrDuplicateNumber so the allocator can retry them.
type Store interface {
	// InTx runs fn in a single transaction.  The transaction commits when
	// fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Tour(ctx context.Context, id uint64) (*model.Tour, error)
	BookedPeople(ctx context.Context, tourID uint64, date time.Time, statuses []model.BookingStatus) (int, error)
	Booking(ctx context.Context, id uint64) (*model.Booking, error)
	BookingByNumber(ctx context.Context, number string) (*model.Booking, error)
	ListBookings(ctx context.Context, f ListFilter) ([]model.Booking, int, error)
	// PeopleByDate totals people per tour date over statuses.  Dates
	// without bookings are absent from the map.
	PeopleByDate(ctx context.Context, tourID uint64, statuses []model.BookingStatus) (map[time.Time]int, error)
}

// Tx is the set of operations available inside a Store transaction.
type Tx interface {
	// LockTour reads the tour and holds an exclusive lock on it until the
	// transaction ends.  All capacity decisions for the tour are made
	// under this lock.
	LockTour(ctx context.Context, id uint64) (*model.Tour, error)
	BookedPeople(ctx context.Context, tourID uint64, date time.Time, statuses []model.BookingStatus) (int, error)
	ActivePeople(ctx context.Context, tourID uint64, statuses []model.BookingStatus) (int, error)
	// PeakDatePeople returns the people booked on the tour's busiest date.
	PeakDatePeople(ctx context.Context, tourID uint64, statuses []model.BookingStatus) (int, error)
	// UpdateTour writes the editable columns of t.  booked_count is not
	// touched.
	UpdateTour(ctx context.Context, t *model.Tour) error
	AdjustBookedCount(ctx context.Context, tourID uint64, delta int) error
	SetBookedCount(ctx context.Context, tourID uint64, n int) error

	BookingNumberExists(ctx context.Context, number string) (bool, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	Booking(ctx context.Context, id uint64) (*model.Booking, error)
	LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, b *model.Booking) error
}

// ListFilter narrows a booking list.  Zero values match everything.
type ListFilter struct {
	UserID uint64
	TourID uint64
	Date   time.Time // tour date
	Status model.BookingStatus
	Limit  int
	Offset int
}
