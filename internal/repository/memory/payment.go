package memory

import (
	"context"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// PaymentRepository is an in-memory implementation of repository.PaymentRepository.
type PaymentRepository struct {
	run runner
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return r.run(func(d *data) error {
		if _, ok := d.paymentByBooking[payment.BookingID]; ok {
			return repository.ErrDuplicate
		}
		p := *payment
		d.payments[p.ID] = &p
		d.paymentByBooking[p.BookingID] = p.ID
		return nil
	})
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.run(func(d *data) error {
		p, ok := d.payments[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := *p
		out = &c
		return nil
	})
	return out, err
}

// GetByBookingID retrieves the payment of a booking.
func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.run(func(d *data) error {
		id, ok := d.paymentByBooking[bookingID]
		if !ok {
			return repository.ErrNotFound
		}
		c := *d.payments[id]
		out = &c
		return nil
	})
	return out, err
}

// UpdateStatus updates the status of a payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, settledAt time.Time) error {
	return r.run(func(d *data) error {
		p, ok := d.payments[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.Status = status
		if !settledAt.IsZero() {
			p.SettledAt = settledAt
		}
		return nil
	})
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)
