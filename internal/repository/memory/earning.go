package memory

import (
	"context"
	"sort"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// EarningRepository is an in-memory implementation of repository.EarningRepository.
type EarningRepository struct {
	run runner
}

// Create persists a new earning.
func (r *EarningRepository) Create(ctx context.Context, earning *domain.DriverEarning) error {
	return r.run(func(d *data) error {
		if _, ok := d.earningByBooking[earning.BookingID]; ok {
			return repository.ErrDuplicate
		}
		if _, ok := d.earnings[earning.ID]; ok {
			return repository.ErrDuplicate
		}
		e := *earning
		d.earnings[e.ID] = &e
		d.earningByBooking[e.BookingID] = e.ID
		return nil
	})
}

// GetByID retrieves an earning by ID.
func (r *EarningRepository) GetByID(ctx context.Context, id string) (*domain.DriverEarning, error) {
	var out *domain.DriverEarning
	err := r.run(func(d *data) error {
		e, ok := d.earnings[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := *e
		out = &c
		return nil
	})
	return out, err
}

// GetByBookingID retrieves the earning of a booking.
func (r *EarningRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.DriverEarning, error) {
	var out *domain.DriverEarning
	err := r.run(func(d *data) error {
		id, ok := d.earningByBooking[bookingID]
		if !ok {
			return repository.ErrNotFound
		}
		c := *d.earnings[id]
		out = &c
		return nil
	})
	return out, err
}

// ListByDriver retrieves a driver's earnings, newest first.
func (r *EarningRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.DriverEarning, error) {
	var out []*domain.DriverEarning
	err := r.run(func(d *data) error {
		for _, e := range d.earnings {
			if e.DriverID == driverID {
				c := *e
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

// Update writes bonus, tip, totals and settlement status.
func (r *EarningRepository) Update(ctx context.Context, earning *domain.DriverEarning) error {
	return r.run(func(d *data) error {
		e, ok := d.earnings[earning.ID]
		if !ok {
			return repository.ErrNotFound
		}
		e.Bonus = earning.Bonus
		e.BonusReason = earning.BonusReason
		e.Tip = earning.Tip
		e.TotalEarning = earning.TotalEarning
		e.SettlementStatus = earning.SettlementStatus
		e.UpdatedAt = earning.UpdatedAt
		return nil
	})
}

// Ensure EarningRepository implements repository.EarningRepository.
var _ repository.EarningRepository = (*EarningRepository)(nil)
