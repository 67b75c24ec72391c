package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// BookingRepo provides access to the bookings table.  All timestamps are
// stored in UTC; tour_date is a DATE column.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, booking_number, tour_id, user_id, tour_date, people_count, total_price_cents,
	status, special_requests, cancellation_reason, booked_at, confirmed_at, cancelled_at, completed_at, updated_at`

func scanBooking(row interface{ Scan(dest ...any) error }) (*model.Booking, error) {
	var (
		b                                   model.Booking
		status                              string
		special, reason                     sql.NullString
		confirmedAt, cancelledAt, completed sql.NullTime
	)
	err := row.Scan(&b.ID, &b.BookingNumber, &b.TourID, &b.UserID, &b.TourDate, &b.PeopleCount, &b.TotalPriceCents,
		&status, &special, &reason, &b.BookedAt, &confirmedAt, &cancelledAt, &completed, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.SpecialRequests = stringPtr(special)
	b.CancellationReason = stringPtr(reason)
	b.ConfirmedAt = timePtr(confirmedAt)
	b.CancelledAt = timePtr(cancelledAt)
	b.CompletedAt = timePtr(completed)
	return &b, nil
}

func getBooking(ctx context.Context, q querier, where string, arg any, forUpdate bool) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetByID returns the booking with id or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return getBooking(ctx, r.db, "id = ?", id, false)
}

// GetByNumber returns the booking with the given booking number.
func (r *BookingRepo) GetByNumber(ctx context.Context, number string) (*model.Booking, error) {
	return getBooking(ctx, r.db, "booking_number = ?", number, false)
}

// GetByIDTx reads a booking inside tx without locking it.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return getBooking(ctx, tx, "id = ?", id, false)
}

// LockTx reads a booking inside tx and locks its row until tx ends.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return getBooking(ctx, tx, "id = ?", id, true)
}

// NumberExistsTx reports whether a booking number is already taken.
func (r *BookingRepo) NumberExistsTx(ctx context.Context, tx *sql.Tx, number string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE booking_number = ? LIMIT 1`, number).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CreateTx inserts b within tx and sets its generated ID.  The caller
// must commit or roll back tx.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (booking_number, tour_id, user_id, tour_date, people_count, total_price_cents,
		status, special_requests, booked_at, confirmed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.BookingNumber, b.TourID, b.UserID, model.DateOf(b.TourDate), b.PeopleCount,
		b.TotalPriceCents, string(b.Status), nullString(b.SpecialRequests), b.BookedAt, nullTime(b.ConfirmedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// UpdateStatusTx writes the status, transition timestamps and
// cancellation reason of b.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `UPDATE bookings SET status = ?, confirmed_at = ?, cancelled_at = ?, completed_at = ?,
		cancellation_reason = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, string(b.Status), nullTime(b.ConfirmedAt), nullTime(b.CancelledAt),
		nullTime(b.CompletedAt), nullString(b.CancellationReason), b.ID)
	return err
}

// SumPeople totals people_count on one tour date over the given statuses.
func (r *BookingRepo) SumPeople(ctx context.Context, tourID uint64, date time.Time, statuses []model.BookingStatus) (int, error) {
	return sumPeople(ctx, r.db, tourID, &date, statuses)
}

// SumPeopleTx is SumPeople inside tx.
func (r *BookingRepo) SumPeopleTx(ctx context.Context, tx *sql.Tx, tourID uint64, date time.Time, statuses []model.BookingStatus) (int, error) {
	return sumPeople(ctx, tx, tourID, &date, statuses)
}

// SumAllDatesTx totals people_count on every date of the tour.
func (r *BookingRepo) SumAllDatesTx(ctx context.Context, tx *sql.Tx, tourID uint64, statuses []model.BookingStatus) (int, error) {
	return sumPeople(ctx, tx, tourID, nil, statuses)
}

func sumPeople(ctx context.Context, q querier, tourID uint64, date *time.Time, statuses []model.BookingStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	query := `SELECT COALESCE(SUM(people_count), 0) FROM bookings WHERE tour_id = ?`
	args := []any{tourID}
	if date != nil {
		query += ` AND tour_date = ?`
		args = append(args, model.DateOf(*date))
	}
	query += ` AND status IN (` + placeholders(len(statuses)) + `)`
	for _, s := range statuses {
		args = append(args, string(s))
	}
	var n int
	err := q.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// BookingFilter narrows List.  Zero values match everything.
type BookingFilter struct {
	UserID uint64
	TourID uint64
	Date   time.Time // tour date
	Status model.BookingStatus
	Limit  int
	Offset int
}

// List returns a page of bookings matching f, newest first, and the total
// number of matching rows.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, int, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.TourID != 0 {
		where = append(where, "tour_id = ?")
		args = append(args, f.TourID)
	}
	if !f.Date.IsZero() {
		where = append(where, "tour_date = ?")
		args = append(args, model.DateOf(f.Date))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings`+cond+` ORDER BY booked_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0, limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

// PeopleByDate totals people_count per tour_date over the given statuses.
func (r *BookingRepo) PeopleByDate(ctx context.Context, tourID uint64, statuses []model.BookingStatus) (map[time.Time]int, error) {
	out := make(map[time.Time]int)
	if len(statuses) == 0 {
		return out, nil
	}
	args := statusArgs(tourID, statuses)
	rows, err := r.db.QueryContext(ctx,
		`SELECT tour_date, SUM(people_count) FROM bookings
		WHERE tour_id = ? AND status IN (`+placeholders(len(statuses))+`)
		GROUP BY tour_date`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			day time.Time
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[model.DateOf(day)] = n
	}
	return out, rows.Err()
}

// PeakDatePeopleTx returns the people booked on the tour's busiest date,
// 0 when it has no bookings.
func (r *BookingRepo) PeakDatePeopleTx(ctx context.Context, tx *sql.Tx, tourID uint64, statuses []model.BookingStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(s), 0) FROM (
			SELECT SUM(people_count) AS s FROM bookings
			WHERE tour_id = ? AND status IN (`+placeholders(len(statuses))+`)
			GROUP BY tour_date
		) per_date`, statusArgs(tourID, statuses)...).Scan(&n)
	return n, err
}

func statusArgs(tourID uint64, statuses []model.BookingStatus) []any {
	args := make([]any, 0, len(statuses)+1)
	args = append(args, tourID)
	for _, s := range statuses {
		args = append(args, string(s))
	}
	return args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}
