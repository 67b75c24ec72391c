// Package bookingtest provides an in-memory booking.Store for tests of the
// allocator and the packages built on it.
package bookingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/tour-booking/internal/booking"
	"github.com/iliyamo/tour-booking/internal/model"
)

// Store keeps tours and bookings in maps.  Transactions are serialized on
// a single mutex and roll back by restoring a snapshot, which gives the
// same isolation a tour row lock gives the MySQL store.
type Store struct {
	mu       sync.Mutex
	tours    map[uint64]model.Tour
	bookings map[uint64]model.Booking
	lastTour uint64
	lastBook uint64
	failures []error
	txCount  int
}

func NewStore() *Store {
	return &Store{
		tours:    make(map[uint64]model.Tour),
		bookings: make(map[uint64]model.Booking),
	}
}

// AddTour stores t, assigning an ID when t.ID is zero, and returns the
// stored copy.
func (s *Store) AddTour(t model.Tour) model.Tour {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		s.lastTour++
		t.ID = s.lastTour
	} else if t.ID > s.lastTour {
		s.lastTour = t.ID
	}
	if t.Status == "" {
		t.Status = model.TourAvailable
	}
	s.tours[t.ID] = t
	return t
}

// UpdateTour applies fn to the stored tour with id.
func (s *Store) UpdateTour(id uint64, fn func(t *model.Tour)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tours[id]
	if !ok {
		return
	}
	fn(&t)
	s.tours[id] = t
}

// TourSnapshot returns the stored tour with id, or the zero Tour.
func (s *Store) TourSnapshot(id uint64) model.Tour {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tours[id]
}

// AddBooking stores b as-is, assigning an ID when b.ID is zero.  It does
// not touch the tour's booked count.
func (s *Store) AddBooking(b model.Booking) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.lastBook++
		b.ID = s.lastBook
	} else if b.ID > s.lastBook {
		s.lastBook = b.ID
	}
	s.bookings[b.ID] = b
	return b
}

// Bookings returns every stored booking ordered by ID.
func (s *Store) Bookings() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FailNextTx makes the next len(errs) calls to InTx return these errors
// without running their function.
func (s *Store) FailNextTx(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// Transactions returns how many times InTx has been called.
func (s *Store) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

func (s *Store) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}

	tours, bookings, lastBook := cloneTours(s.tours), cloneBookings(s.bookings), s.lastBook
	if err := fn(&memTx{s: s}); err != nil {
		s.tours, s.bookings, s.lastBook = tours, bookings, lastBook
		return err
	}
	return nil
}

func (s *Store) Tour(_ context.Context, id uint64) (*model.Tour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tour(id)
}

func (s *Store) BookedPeople(_ context.Context, tourID uint64, date time.Time, statuses []model.BookingStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumPeople(tourID, &date, statuses), nil
}

func (s *Store) Booking(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.booking(id)
}

func (s *Store) BookingByNumber(_ context.Context, number string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.BookingNumber == number {
			return &b, nil
		}
	}
	return nil, booking.ErrBookingNotFound
}

func (s *Store) ListBookings(_ context.Context, f booking.ListFilter) ([]model.Booking, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []model.Booking
	for _, b := range s.bookings {
		switch {
		case f.UserID != 0 && b.UserID != f.UserID,
			f.TourID != 0 && b.TourID != f.TourID,
			!f.Date.IsZero() && !model.DateOf(b.TourDate).Equal(model.DateOf(f.Date)),
			f.Status != "" && b.Status != f.Status:
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].BookedAt.Equal(matched[j].BookedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].BookedAt.After(matched[j].BookedAt)
	})
	total := len(matched)
	if f.Offset >= total {
		return []model.Booking{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (s *Store) PeopleByDate(_ context.Context, tourID uint64, statuses []model.BookingStatus) (map[time.Time]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peopleByDate(tourID, statuses), nil
}

func (s *Store) tour(id uint64) (*model.Tour, error) {
	t, ok := s.tours[id]
	if !ok {
		return nil, booking.ErrTourNotFound
	}
	return &t, nil
}

func (s *Store) booking(id uint64) (*model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return &b, nil
}

// sumPeople totals people on tourID in the given statuses, on one date
// when date is non-nil.
func (s *Store) sumPeople(tourID uint64, date *time.Time, statuses []model.BookingStatus) int {
	n := 0
	for _, b := range s.bookings {
		if b.TourID != tourID || !hasStatus(statuses, b.Status) {
			continue
		}
		if date != nil && !model.DateOf(b.TourDate).Equal(model.DateOf(*date)) {
			continue
		}
		n += b.PeopleCount
	}
	return n
}

func (s *Store) peopleByDate(tourID uint64, statuses []model.BookingStatus) map[time.Time]int {
	out := make(map[time.Time]int)
	for _, b := range s.bookings {
		if b.TourID == tourID && hasStatus(statuses, b.Status) {
			out[model.DateOf(b.TourDate)] += b.PeopleCount
		}
	}
	return out
}

// memTx runs with Store.mu already held.
type memTx struct {
	s *Store
}

func (tx *memTx) LockTour(_ context.Context, id uint64) (*model.Tour, error) {
	return tx.s.tour(id)
}

func (tx *memTx) BookedPeople(_ context.Context, tourID uint64, date time.Time, statuses []model.BookingStatus) (int, error) {
	return tx.s.sumPeople(tourID, &date, statuses), nil
}

func (tx *memTx) ActivePeople(_ context.Context, tourID uint64, statuses []model.BookingStatus) (int, error) {
	return tx.s.sumPeople(tourID, nil, statuses), nil
}

func (tx *memTx) PeakDatePeople(_ context.Context, tourID uint64, statuses []model.BookingStatus) (int, error) {
	peak := 0
	for _, n := range tx.s.peopleByDate(tourID, statuses) {
		peak = max(peak, n)
	}
	return peak, nil
}

func (tx *memTx) UpdateTour(_ context.Context, t *model.Tour) error {
	cur, ok := tx.s.tours[t.ID]
	if !ok {
		return booking.ErrTourNotFound
	}
	next := *t
	next.BookedCount = cur.BookedCount
	tx.s.tours[t.ID] = next
	return nil
}

func (tx *memTx) AdjustBookedCount(_ context.Context, tourID uint64, delta int) error {
	t, ok := tx.s.tours[tourID]
	if !ok {
		return booking.ErrTourNotFound
	}
	t.BookedCount += delta
	if t.BookedCount < 0 {
		t.BookedCount = 0
	}
	tx.s.tours[tourID] = t
	return nil
}

func (tx *memTx) SetBookedCount(_ context.Context, tourID uint64, n int) error {
	t, ok := tx.s.tours[tourID]
	if !ok {
		return booking.ErrTourNotFound
	}
	t.BookedCount = n
	tx.s.tours[tourID] = t
	return nil
}

func (tx *memTx) BookingNumberExists(_ context.Context, number string) (bool, error) {
	for _, b := range tx.s.bookings {
		if b.BookingNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	if exists, _ := tx.BookingNumberExists(ctx, b.BookingNumber); exists {
		return booking.ErrDuplicateNumber
	}
	tx.s.lastBook++
	b.ID = tx.s.lastBook
	tx.s.bookings[b.ID] = *b
	return nil
}

func (tx *memTx) Booking(_ context.Context, id uint64) (*model.Booking, error) {
	return tx.s.booking(id)
}

func (tx *memTx) LockBooking(_ context.Context, id uint64) (*model.Booking, error) {
	return tx.s.booking(id)
}

func (tx *memTx) UpdateBookingStatus(_ context.Context, b *model.Booking) error {
	if _, ok := tx.s.bookings[b.ID]; !ok {
		return booking.ErrBookingNotFound
	}
	tx.s.bookings[b.ID] = *b
	return nil
}

func hasStatus(list []model.BookingStatus, s model.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneTours(m map[uint64]model.Tour) map[uint64]model.Tour {
	out := make(map[uint64]model.Tour, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBookings(m map[uint64]model.Booking) map[uint64]model.Booking {
	out := make(map[uint64]model.Booking, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
