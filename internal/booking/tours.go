package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/tour-booking/internal/model"
)

// DateAvailability is the state of one date on a tour calendar.
type DateAvailability struct {
	Date      time.Time
	Booked    int
	Remaining int
}

// Calendar lists every date of a tour with its free places.  Reason is
// set and Days is empty when the tour takes no bookings.
type Calendar struct {
	Capacity    int
	BookedCount int
	Reason      string
	Days        []DateAvailability
}

// AvailableDates reports free places for each date between the tour's
// start and end dates.  Like CheckAvailability it reads without locking.
func (a *Allocator) AvailableDates(ctx context.Context, tourID uint64) (Calendar, error) {
	tour, err := a.store.Tour(ctx, tourID)
	if err != nil {
		return Calendar{}, err
	}
	cal := Calendar{Capacity: tour.Capacity, BookedCount: tour.BookedCount}
	if !tour.Status.Bookable() {
		cal.Reason = ErrTourNotBookable.Error()
		return cal, nil
	}
	booked, err := a.store.PeopleByDate(ctx, tourID, a.policy.CountedStatuses())
	if err != nil {
		return Calendar{}, err
	}
	end := model.DateOf(tour.EndDate)
	for day := model.DateOf(tour.StartDate); !day.After(end); day = day.AddDate(0, 0, 1) {
		n := booked[day]
		cal.Days = append(cal.Days, DateAvailability{
			Date:      day,
			Booked:    n,
			Remaining: remainingOf(tour.Capacity, n),
		})
	}
	return cal, nil
}

// UpdateTour replaces the editable fields of the tour t.ID.  The tour is
// locked first, so the new capacity is compared with the busiest date
// while no reservation can change it.
func (a *Allocator) UpdateTour(ctx context.Context, t model.Tour) (*model.Tour, error) {
	if t.Capacity < 1 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidCapacity, t.Capacity)
	}
	var updated *model.Tour
	err := a.withRetry(ctx, "update_tour", func(tx Tx) error {
		updated = nil
		cur, err := tx.LockTour(ctx, t.ID)
		if err != nil {
			return err
		}
		if t.Capacity < cur.Capacity {
			peak, err := tx.PeakDatePeople(ctx, t.ID, a.policy.CountedStatuses())
			if err != nil {
				return err
			}
			if t.Capacity < peak {
				return &ResizeError{Peak: peak}
			}
		}
		next := t
		next.BookedCount = cur.BookedCount
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = a.now().UTC()
		if err := tx.UpdateTour(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("tour updated",
		zap.Uint64("tour_id", updated.ID),
		zap.Int("capacity", updated.Capacity),
		zap.String("status", string(updated.Status)))
	return updated, nil
}
