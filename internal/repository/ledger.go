package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/tour-booking/internal/booking"
	"github.com/iliyamo/tour-booking/internal/model"
)

// Ledger is the MySQL implementation of booking.Store.  It combines the
// tour and booking repositories and runs allocator transactions at
// REPEATABLE READ with the tour row locked FOR UPDATE.
type Ledger struct {
	db       *sql.DB
	tours    *TourRepo
	bookings *BookingRepo
	log      *zap.Logger
}

// NewLedger builds a Ledger over db.
func NewLedger(db *sql.DB, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		db:       db,
		tours:    NewTourRepo(db),
		bookings: NewBookingRepo(db),
		log:      log,
	}
}

var _ booking.Store = (*Ledger)(nil)

func (l *Ledger) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", translate(err))
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				l.log.Warn("booking tx rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err := fn(&ledgerTx{tx: tx, tours: l.tours, bookings: l.bookings}); err != nil {
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking tx: %w", translate(err))
	}
	committed = true
	return nil
}

func (l *Ledger) Tour(ctx context.Context, id uint64) (*model.Tour, error) {
	t, err := l.tours.GetByID(ctx, id)
	return t, translate(err)
}

func (l *Ledger) BookedPeople(ctx context.Context, tourID uint64, date time.Time, statuses []model.BookingStatus) (int, error) {
	n, err := l.bookings.SumPeople(ctx, tourID, date, statuses)
	return n, translate(err)
}

func (l *Ledger) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := l.bookings.GetByID(ctx, id)
	return b, translate(err)
}

func (l *Ledger) BookingByNumber(ctx context.Context, number string) (*model.Booking, error) {
	b, err := l.bookings.GetByNumber(ctx, number)
	return b, translate(err)
}

func (l *Ledger) ListBookings(ctx context.Context, f booking.ListFilter) ([]model.Booking, int, error) {
	items, total, err := l.bookings.List(ctx, BookingFilter{
		UserID: f.UserID,
		TourID: f.TourID,
		Date:   f.Date,
		Status: f.Status,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	return items, total, translate(err)
}

func (l *Ledger) PeopleByDate(ctx context.Context, tourID uint64, statuses []model.BookingStatus) (map[time.Time]int, error) {
	m, err := l.bookings.PeopleByDate(ctx, tourID, statuses)
	return m, translate(err)
}

// ledgerTx adapts the repositories' Tx methods to booking.Tx.
type ledgerTx struct {
	tx       *sql.Tx
	tours    *TourRepo
	bookings *BookingRepo
}

func (t *ledgerTx) LockTour(ctx context.Context, id uint64) (*model.Tour, error) {
	tour, err := t.tours.LockTx(ctx, t.tx, id)
	return tour, translate(err)
}

func (t *ledgerTx) BookedPeople(ctx context.Context, tourID uint64, date time.Time, statuses []model.BookingStatus) (int, error) {
	return t.bookings.SumPeopleTx(ctx, t.tx, tourID, date, statuses)
}

func (t *ledgerTx) ActivePeople(ctx context.Context, tourID uint64, statuses []model.BookingStatus) (int, error) {
	return t.bookings.SumAllDatesTx(ctx, t.tx, tourID, statuses)
}

func (t *ledgerTx) PeakDatePeople(ctx context.Context, tourID uint64, statuses []model.BookingStatus) (int, error) {
	return t.bookings.PeakDatePeopleTx(ctx, t.tx, tourID, statuses)
}

func (t *ledgerTx) UpdateTour(ctx context.Context, tour *model.Tour) error {
	return t.tours.UpdateTx(ctx, t.tx, tour)
}

func (t *ledgerTx) AdjustBookedCount(ctx context.Context, tourID uint64, delta int) error {
	return t.tours.AdjustBookedCountTx(ctx, t.tx, tourID, delta)
}

func (t *ledgerTx) SetBookedCount(ctx context.Context, tourID uint64, n int) error {
	return t.tours.SetBookedCountTx(ctx, t.tx, tourID, n)
}

func (t *ledgerTx) BookingNumberExists(ctx context.Context, number string) (bool, error) {
	return t.bookings.NumberExistsTx(ctx, t.tx, number)
}

func (t *ledgerTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	err := t.bookings.CreateTx(ctx, t.tx, b)
	if isDuplicate(err) {
		return fmt.Errorf("%w: %s", booking.ErrDuplicateNumber, b.BookingNumber)
	}
	return err
}

func (t *ledgerTx) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := t.bookings.GetByIDTx(ctx, t.tx, id)
	return b, translate(err)
}

func (t *ledgerTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := t.bookings.LockTx(ctx, t.tx, id)
	return b, translate(err)
}

func (t *ledgerTx) UpdateBookingStatus(ctx context.Context, b *model.Booking) error {
	return t.bookings.UpdateStatusTx(ctx, t.tx, b)
}

// translate maps repository and driver errors onto the allocator's
// error vocabulary.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTourNotFound):
		return booking.ErrTourNotFound
	case errors.Is(err, ErrBookingNotFound):
		return booking.ErrBookingNotFound
	case isTransient(err):
		return fmt.Errorf("%w: %v", booking.ErrConcurrencyConflict, err)
	}
	return err
}
