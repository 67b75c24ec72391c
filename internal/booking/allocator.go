// Package booking implements the booking allocator: it accepts, confirms
// and cancels bookings while keeping the people booked on every tour date
// within the tour's capacity.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/tour-booking/internal/metrics"
	"github.com/iliyamo/tour-booking/internal/model"
)

// Actor identifies who performs an operation.  Elevated actors may manage
// bookings owned by other users.
type Actor struct {
	ID       uint64
	Elevated bool
}

func (a Actor) canManage(b *model.Booking) bool {
	return a.Elevated || (a.ID != 0 && a.ID == b.UserID)
}

// ReserveRequest is the input of Reserve.
type ReserveRequest struct {
	TourID          uint64
	Date            time.Time
	PartyCount      int
	RequesterID     uint64
	SpecialRequests string
}

// CancelRequest is the input of Cancel.
type CancelRequest struct {
	BookingID uint64
	Actor     Actor
	Reason    string
}

// Availability is the answer of CheckAvailability.  Reason is set when
// the tour cannot take bookings on the date at all.
type Availability struct {
	Available bool
	Remaining int
	Capacity  int
	Booked    int
	Reason    string
}

// Page is one page of a user's bookings.
type Page struct {
	Bookings []model.Booking
	Total    int
	Page     int
	Limit    int
}

// Allocator enforces per-date capacity for reservations.
type Allocator struct {
	store    Store
	policy   Policy
	log      *zap.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	now      func() time.Time
}

// Option customises an Allocator.
type Option func(*Allocator)

func WithLogger(l *zap.Logger) Option { return func(a *Allocator) { a.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(a *Allocator) { a.metrics = m } }

func WithNotifier(n Notifier) Option { return func(a *Allocator) { a.notifier = n } }

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(a *Allocator) { a.now = now } }

// New returns an Allocator over store.
func New(store Store, policy Policy, opts ...Option) (*Allocator, error) {
	if store == nil {
		return nil, errors.New("booking: nil store")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("booking: %w", err)
	}
	a := &Allocator{
		store:  store,
		policy: policy,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Policy returns the rules the allocator was built with.
func (a *Allocator) Policy() Policy { return a.policy }

func (a *Allocator) validateParty(n int) error {
	if n < 1 || n > a.policy.MaxPartySize {
		return fmt.Errorf("%w: must be between 1 and %d", ErrInvalidPartyCount, a.policy.MaxPartySize)
	}
	return nil
}

// Reserve books req.PartyCount places on the tour for req.Date.  The
// capacity check and the insert happen under the tour's row lock, so
// concurrent reservations for the same tour are decided one at a time.
func (a *Allocator) Reserve(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
	if err := a.validateParty(req.PartyCount); err != nil {
		a.metrics.ObserveReservation(metrics.OutcomeRejected)
		return nil, err
	}
	if req.Date.IsZero() {
		a.metrics.ObserveReservation(metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: tour date is required", ErrInvalidDate)
	}
	date := model.DateOf(req.Date)

	var created *model.Booking
	err := a.withRetry(ctx, "reserve", func(tx Tx) error {
		created = nil
		tour, err := tx.LockTour(ctx, req.TourID)
		if err != nil {
			return err
		}
		if !tour.Status.Bookable() {
			return fmt.Errorf("%w: status %s", ErrTourNotBookable, tour.Status)
		}
		if !tour.Covers(date) {
			return ErrDateOutOfRange
		}
		booked, err := tx.BookedPeople(ctx, tour.ID, date, a.policy.CountedStatuses())
		if err != nil {
			return err
		}
		remaining := remainingOf(tour.Capacity, booked)
		if req.PartyCount > remaining {
			return &CapacityError{Remaining: remaining}
		}
		number, err := a.freshNumber(ctx, tx)
		if err != nil {
			return err
		}

		now := a.now().UTC()
		b := &model.Booking{
			BookingNumber:   number,
			TourID:          tour.ID,
			UserID:          req.RequesterID,
			TourDate:        date,
			PeopleCount:     req.PartyCount,
			TotalPriceCents: tour.UnitPriceCents() * int64(req.PartyCount),
			Status:          a.policy.InitialStatus,
			BookedAt:        now,
			UpdatedAt:       now,
		}
		if s := strings.TrimSpace(req.SpecialRequests); s != "" {
			b.SpecialRequests = &s
		}
		if b.Status == model.BookingConfirmed {
			b.ConfirmedAt = &now
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.AdjustBookedCount(ctx, tour.ID, req.PartyCount); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		a.metrics.ObserveReservation(reservationOutcome(err))
		return nil, err
	}

	a.metrics.ObserveReservation(metrics.OutcomeBooked)
	a.log.Info("booking reserved",
		zap.String("booking_number", created.BookingNumber),
		zap.Uint64("tour_id", created.TourID),
		zap.Uint64("user_id", created.UserID),
		zap.String("tour_date", created.TourDate.Format(time.DateOnly)),
		zap.Int("people", created.PeopleCount),
	)
	a.notify(ctx, EventReserved, created, req.RequesterID)
	return created, nil
}

// Cancel moves a pending or confirmed booking to cancelled and releases
// its places.  Cancelling twice returns ErrAlreadyCancelled and releases
// nothing the second time.
func (a *Allocator) Cancel(ctx context.Context, req CancelRequest) (*model.Booking, error) {
	var cancelled *model.Booking
	err := a.withRetry(ctx, "cancel", func(tx Tx) error {
		cancelled = nil
		b, _, err := a.lockBookingAndTour(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if !req.Actor.canManage(b) {
			return ErrUnauthorized
		}
		switch b.Status {
		case model.BookingCancelled:
			return ErrAlreadyCancelled
		case model.BookingCompleted:
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, model.BookingCancelled)
		}

		now := a.now().UTC()
		b.Status = model.BookingCancelled
		b.CancelledAt = &now
		b.UpdatedAt = now
		if r := strings.TrimSpace(req.Reason); r != "" {
			b.CancellationReason = &r
		}
		if err := tx.UpdateBookingStatus(ctx, b); err != nil {
			return err
		}
		if err := tx.AdjustBookedCount(ctx, b.TourID, -b.PeopleCount); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.metrics.ObserveTransition(string(model.BookingCancelled))
	a.log.Info("booking cancelled",
		zap.String("booking_number", cancelled.BookingNumber),
		zap.Uint64("actor_id", req.Actor.ID),
		zap.Bool("elevated", req.Actor.Elevated),
	)
	a.notify(ctx, EventCancelled, cancelled, req.Actor.ID)
	return cancelled, nil
}

// Confirm moves a pending booking to confirmed.  Confirming a confirmed
// booking returns it unchanged.  When pending bookings do not hold
// capacity the places are checked again before confirming.
func (a *Allocator) Confirm(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	var (
		result  *model.Booking
		changed bool
	)
	err := a.withRetry(ctx, "confirm", func(tx Tx) error {
		result, changed = nil, false
		b, tour, err := a.lockBookingAndTour(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case model.BookingConfirmed:
			result = b
			return nil
		case model.BookingPending:
		default:
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, model.BookingConfirmed)
		}

		if !a.policy.CountPending {
			booked, err := tx.BookedPeople(ctx, b.TourID, b.TourDate, a.policy.CountedStatuses())
			if err != nil {
				return err
			}
			if remaining := remainingOf(tour.Capacity, booked); b.PeopleCount > remaining {
				return &CapacityError{Remaining: remaining}
			}
		}

		now := a.now().UTC()
		b.Status = model.BookingConfirmed
		b.ConfirmedAt = &now
		b.UpdatedAt = now
		if err := tx.UpdateBookingStatus(ctx, b); err != nil {
			return err
		}
		result, changed = b, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		a.metrics.ObserveTransition(string(model.BookingConfirmed))
		a.log.Info("booking confirmed", zap.String("booking_number", result.BookingNumber))
		a.notify(ctx, EventConfirmed, result, 0)
	}
	return result, nil
}

// Complete marks a confirmed booking as completed once the tour has run.
func (a *Allocator) Complete(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	var done *model.Booking
	err := a.withRetry(ctx, "complete", func(tx Tx) error {
		done = nil
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingConfirmed {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, model.BookingCompleted)
		}
		now := a.now().UTC()
		b.Status = model.BookingCompleted
		b.CompletedAt = &now
		b.UpdatedAt = now
		if err := tx.UpdateBookingStatus(ctx, b); err != nil {
			return err
		}
		done = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.metrics.ObserveTransition(string(model.BookingCompleted))
	a.notify(ctx, EventCompleted, done, 0)
	return done, nil
}

// CheckAvailability answers whether partyCount places are free on date.
// It reads without locking, so the answer is advisory.
func (a *Allocator) CheckAvailability(ctx context.Context, tourID uint64, date time.Time, partyCount int) (Availability, error) {
	if partyCount == 0 {
		partyCount = 1
	}
	if err := a.validateParty(partyCount); err != nil {
		return Availability{}, err
	}
	if date.IsZero() {
		return Availability{}, fmt.Errorf("%w: date is required", ErrInvalidDate)
	}
	tour, err := a.store.Tour(ctx, tourID)
	if err != nil {
		return Availability{}, err
	}
	out := Availability{Capacity: tour.Capacity}
	if !tour.Status.Bookable() {
		out.Reason = ErrTourNotBookable.Error()
		return out, nil
	}
	if !tour.Covers(date) {
		out.Reason = ErrDateOutOfRange.Error()
		return out, nil
	}
	booked, err := a.store.BookedPeople(ctx, tourID, model.DateOf(date), a.policy.CountedStatuses())
	if err != nil {
		return Availability{}, err
	}
	out.Booked = booked
	out.Remaining = remainingOf(tour.Capacity, booked)
	out.Available = partyCount <= out.Remaining
	return out, nil
}

// Booking returns the booking with id if actor may see it.
func (a *Allocator) Booking(ctx context.Context, id uint64, actor Actor) (*model.Booking, error) {
	b, err := a.store.Booking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(b) {
		return nil, ErrUnauthorized
	}
	return b, nil
}

// BookingByNumber returns the booking with the given number if actor may see it.
func (a *Allocator) BookingByNumber(ctx context.Context, number string, actor Actor) (*model.Booking, error) {
	b, err := a.store.BookingByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, err
	}
	if !actor.canManage(b) {
		return nil, ErrUnauthorized
	}
	return b, nil
}

// UserBookings lists a user's bookings, newest first.  page starts at 1;
// limit defaults to 10 and is capped at 100.
func (a *Allocator) UserBookings(ctx context.Context, userID uint64, status model.BookingStatus, page, limit int) (Page, error) {
	return a.list(ctx, ListFilter{UserID: userID, Status: status}, page, limit, 10)
}

// BookingQuery narrows the staff booking list.  Zero values match
// everything.
type BookingQuery struct {
	UserID uint64
	TourID uint64
	Date   time.Time
	Status model.BookingStatus
	Page   int
	Limit  int // default 20, max 100
}

// Bookings lists every booking matching q, newest first.  Only elevated
// actors may list bookings they do not own.
func (a *Allocator) Bookings(ctx context.Context, actor Actor, q BookingQuery) (Page, error) {
	if !actor.Elevated {
		return Page{}, ErrUnauthorized
	}
	f := ListFilter{UserID: q.UserID, TourID: q.TourID, Status: q.Status}
	if !q.Date.IsZero() {
		f.Date = model.DateOf(q.Date)
	}
	return a.list(ctx, f, q.Page, q.Limit, 20)
}

func (a *Allocator) list(ctx context.Context, f ListFilter, page, limit, defLimit int) (Page, error) {
	if f.Status != "" && !f.Status.Valid() {
		return Page{}, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defLimit
	}
	if limit > 100 {
		limit = 100
	}
	f.Limit, f.Offset = limit, (page-1)*limit
	items, total, err := a.store.ListBookings(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{Bookings: items, Total: total, Page: page, Limit: limit}, nil
}

// Reconcile recomputes the tour's cached booked_count from its active
// bookings and returns the new value.
func (a *Allocator) Reconcile(ctx context.Context, tourID uint64) (int, error) {
	var n int
	err := a.withRetry(ctx, "reconcile", func(tx Tx) error {
		if _, err := tx.LockTour(ctx, tourID); err != nil {
			return err
		}
		total, err := tx.ActivePeople(ctx, tourID, ActiveStatuses())
		if err != nil {
			return err
		}
		n = total
		return tx.SetBookedCount(ctx, tourID, total)
	})
	if err != nil {
		return 0, err
	}
	a.log.Info("tour booked count reconciled", zap.Uint64("tour_id", tourID), zap.Int("booked_count", n))
	return n, nil
}

// lockBookingAndTour locks the booking's tour before the booking itself so
// every transaction takes the two locks in the same order as Reserve.
func (a *Allocator) lockBookingAndTour(ctx context.Context, tx Tx, bookingID uint64) (*model.Booking, *model.Tour, error) {
	b, err := tx.Booking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	tour, err := tx.LockTour(ctx, b.TourID)
	if err != nil {
		if errors.Is(err, ErrTourNotFound) {
			return nil, nil, fmt.Errorf("booking %d references missing tour %d: %w", b.ID, b.TourID, err)
		}
		return nil, nil, err
	}
	b, err = tx.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	return b, tour, nil
}

func (a *Allocator) freshNumber(ctx context.Context, tx Tx) (string, error) {
	for i := 0; i < numberAttempts; i++ {
		n, err := NewBookingNumber(a.policy.NumberPrefix, a.now())
		if err != nil {
			return "", err
		}
		exists, err := tx.BookingNumberExists(ctx, n)
		if err != nil {
			return "", err
		}
		if !exists {
			return n, nil
		}
	}
	return "", ErrDuplicateNumber
}

// withRetry runs fn in a store transaction, retrying conflicts with a
// linearly growing delay.
func (a *Allocator) withRetry(ctx context.Context, op string, fn func(tx Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := a.store.InTx(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
		if attempt >= a.policy.MaxAttempts {
			a.log.Warn("booking transaction gave up after conflicts",
				zap.String("operation", op), zap.Int("attempts", attempt), zap.Error(err))
			return fmt.Errorf("%w: %s failed after %d attempts", ErrConcurrencyConflict, op, attempt)
		}
		a.metrics.ObserveRetry(op)
		a.log.Debug("retrying booking transaction",
			zap.String("operation", op), zap.Int("attempt", attempt), zap.Error(err))

		t := time.NewTimer(a.policy.RetryBackoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (a *Allocator) notify(ctx context.Context, kind EventKind, b *model.Booking, actorID uint64) {
	if a.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	ev := Event{Kind: kind, Booking: *b, ActorID: actorID, At: a.now().UTC()}
	if err := a.notifier.Notify(nctx, ev); err != nil {
		a.metrics.ObserveEventFailure()
		a.log.Warn("booking event not delivered",
			zap.String("kind", string(kind)), zap.String("booking_number", b.BookingNumber), zap.Error(err))
	}
}

func remainingOf(capacity, booked int) int {
	if r := capacity - booked; r > 0 {
		return r
	}
	return 0
}

func reservationOutcome(err error) string {
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		return metrics.OutcomeFull
	case errors.Is(err, ErrConcurrencyConflict):
		return metrics.OutcomeConflict
	case IsNotFound(err), IsValidation(err), errors.Is(err, ErrTourNotBookable), errors.Is(err, ErrDateOutOfRange):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
