package repository

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking. Returns ErrDuplicate if the rider
	// already has an active booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetActiveByRider returns the rider's booking in CREATED, ACCEPTED or
	// IN_PROGRESS. Returns nil if none exists.
	GetActiveByRider(ctx context.Context, riderID string) (*domain.Booking, error)

	// GetActiveByDriver returns the driver's booking in ACCEPTED or
	// IN_PROGRESS. Returns nil if none exists.
	GetActiveByDriver(ctx context.Context, driverID string) (*domain.Booking, error)

	// ListByState retrieves bookings in the given state, oldest first.
	ListByState(ctx context.Context, state domain.BookingState) ([]*domain.Booking, error)

	// ListByDriver retrieves every booking assigned to the driver, newest first.
	ListByDriver(ctx context.Context, driverID string) ([]*domain.Booking, error)

	// ListByRider retrieves the rider's bookings, newest first.
	ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Booking, error)

	// ListPendingSettlement retrieves completed bookings whose settlement
	// marker is still set and which completed before the given time.
	ListPendingSettlement(ctx context.Context, completedBefore time.Time) ([]*domain.Booking, error)

	// Update writes the booking if its stored version equals expectedVersion
	// and bumps booking.Version. Returns ErrStaleVersion when the version
	// moved and ErrDuplicate when the driver already has an active booking.
	Update(ctx context.Context, booking *domain.Booking, expectedVersion int) error

	// UpdateDriverLocation sets the live driver location on a booking still
	// assigned to driverID. It does not change the version.
	UpdateDriverLocation(ctx context.Context, id, driverID string, loc domain.Location) error
}
