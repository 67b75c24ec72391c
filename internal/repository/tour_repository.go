package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/tour-booking/internal/model"
)

// TourRepo manages persistence for tours.
type TourRepo struct {
	db *sql.DB
}

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{db: db} }

const tourColumns = `id, title, location, description, price_cents, discount_price_cents,
	start_date, end_date, capacity, booked_count, status, created_at, updated_at`

func scanTour(row interface{ Scan(dest ...any) error }) (*model.Tour, error) {
	var (
		t        model.Tour
		discount sql.NullInt64
		status   string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Location, &t.Description, &t.PriceCents, &discount,
		&t.StartDate, &t.EndDate, &t.Capacity, &t.BookedCount, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if discount.Valid {
		d := discount.Int64
		t.DiscountPriceCents = &d
	}
	t.Status = model.TourStatus(status)
	return &t, nil
}

func getTour(ctx context.Context, q querier, id uint64, forUpdate bool) (*model.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	t, err := scanTour(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTourNotFound
	}
	return t, err
}

// GetByID returns the tour with the given id or ErrTourNotFound.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (*model.Tour, error) {
	return getTour(ctx, r.db, id, false)
}

// LockTx reads the tour inside tx and holds an exclusive row lock on it
// until tx ends.
func (r *TourRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Tour, error) {
	return getTour(ctx, tx, id, true)
}

// Create inserts t and fills in its ID and database defaults.
func (r *TourRepo) Create(ctx context.Context, t *model.Tour) error {
	const q = `INSERT INTO tours (title, location, description, price_cents, discount_price_cents,
		start_date, end_date, capacity, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.Title, t.Location, t.Description, t.PriceCents,
		nullInt64(t.DiscountPriceCents), model.DateOf(t.StartDate), model.DateOf(t.EndDate), t.Capacity, string(t.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

// UpdateTx writes the editable columns of t inside tx.  booked_count is
// never written here; it only changes together with bookings.
func (r *TourRepo) UpdateTx(ctx context.Context, tx *sql.Tx, t *model.Tour) error {
	const q = `UPDATE tours SET title = ?, location = ?, description = ?, price_cents = ?,
		discount_price_cents = ?, start_date = ?, end_date = ?, capacity = ?, status = ?, updated_at = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, t.Title, t.Location, t.Description, t.PriceCents,
		nullInt64(t.DiscountPriceCents), model.DateOf(t.StartDate), model.DateOf(t.EndDate), t.Capacity,
		string(t.Status), t.UpdatedAt, t.ID)
	return err
}

// TourFilter narrows List.  Zero values match everything.
type TourFilter struct {
	Status model.TourStatus
	Search string
	Limit  int
	Offset int
}

// List returns tours ordered by start date together with the total
// number of matching rows.
func (r *TourRepo) List(ctx context.Context, f TourFilter) ([]model.Tour, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(title LIKE ? OR location LIKE ?)")
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tours`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tourColumns+` FROM tours`+cond+` ORDER BY start_date, id LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tours := make([]model.Tour, 0, limit)
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, 0, err
		}
		tours = append(tours, *t)
	}
	return tours, total, rows.Err()
}

// AdjustBookedCountTx adds delta to the cached booked_count, never letting
// it drop below zero.
func (r *TourRepo) AdjustBookedCountTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) error {
	const q = `UPDATE tours SET booked_count = GREATEST(CAST(booked_count AS SIGNED) + ?, 0) WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, delta, id)
	return err
}

// SetBookedCountTx overwrites the cached booked_count.
func (r *TourRepo) SetBookedCountTx(ctx context.Context, tx *sql.Tx, id uint64, n int) error {
	_, err := tx.ExecContext(ctx, `UPDATE tours SET booked_count = ? WHERE id = ?`, n, id)
	return err
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
