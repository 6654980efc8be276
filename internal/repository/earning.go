package repository

import (
	"context"

	"ridehail/internal/domain"
)

// EarningRepository defines the persistence operations for driver earnings.
type EarningRepository interface {
	// Create persists a new earning. Returns ErrDuplicate if one already
	// exists for the booking.
	Create(ctx context.Context, earning *domain.DriverEarning) error

	// GetByID retrieves an earning by ID.
	GetByID(ctx context.Context, id string) (*domain.DriverEarning, error)

	// GetByBookingID retrieves the earning of a booking.
	GetByBookingID(ctx context.Context, bookingID string) (*domain.DriverEarning, error)

	// ListByDriver retrieves a driver's earnings, newest first.
	ListByDriver(ctx context.Context, driverID string) ([]*domain.DriverEarning, error)

	// Update writes bonus, tip, totals and settlement status.
	Update(ctx context.Context, earning *domain.DriverEarning) error
}
