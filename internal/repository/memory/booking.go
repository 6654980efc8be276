package memory

import (
	"context"
	"sort"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// BookingRepository is an in-memory implementation of repository.BookingRepository.
type BookingRepository struct {
	run runner
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return r.run(func(d *data) error {
		if _, ok := d.bookings[booking.ID]; ok {
			return repository.ErrDuplicate
		}
		if booking.State.IsActive() && activeForRider(d, booking.RiderID) != nil {
			return repository.ErrDuplicate
		}
		d.bookings[booking.ID] = booking.Clone()
		return nil
	})
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.run(func(d *data) error {
		b, ok := d.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = b.Clone()
		return nil
	})
	return out, err
}

// GetActiveByRider returns the rider's active booking or nil.
func (r *BookingRepository) GetActiveByRider(ctx context.Context, riderID string) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.run(func(d *data) error {
		if b := activeForRider(d, riderID); b != nil {
			out = b.Clone()
		}
		return nil
	})
	return out, err
}

// GetActiveByDriver returns the driver's accepted or in-progress booking or nil.
func (r *BookingRepository) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.run(func(d *data) error {
		if b := activeForDriver(d, driverID, ""); b != nil {
			out = b.Clone()
		}
		return nil
	})
	return out, err
}

// ListByState retrieves bookings in the given state, oldest first.
func (r *BookingRepository) ListByState(ctx context.Context, state domain.BookingState) ([]*domain.Booking, error) {
	out := r.filter(func(b *domain.Booking) bool { return b.State == state })
	sortOldestFirst(out)
	return out, nil
}

// ListByDriver retrieves every booking assigned to the driver, newest first.
func (r *BookingRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Booking, error) {
	out := r.filter(func(b *domain.Booking) bool { return b.DriverID == driverID })
	sortNewestFirst(out)
	return out, nil
}

// ListByRider retrieves the rider's bookings, newest first.
func (r *BookingRepository) ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Booking, error) {
	out := r.filter(func(b *domain.Booking) bool { return b.RiderID == riderID })
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListPendingSettlement retrieves completed bookings still awaiting settlement.
func (r *BookingRepository) ListPendingSettlement(ctx context.Context, completedBefore time.Time) ([]*domain.Booking, error) {
	out := r.filter(func(b *domain.Booking) bool {
		return b.State == domain.BookingStateCompleted && b.SettlementPending && b.CompletedAt.Before(completedBefore)
	})
	sortOldestFirst(out)
	return out, nil
}

// Update writes the booking if the stored version matches.
func (r *BookingRepository) Update(ctx context.Context, booking *domain.Booking, expectedVersion int) error {
	return r.run(func(d *data) error {
		current, ok := d.bookings[booking.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if current.Version != expectedVersion {
			return repository.ErrStaleVersion
		}
		if booking.State.OccupiesDriver() && activeForDriver(d, booking.DriverID, booking.ID) != nil {
			return repository.ErrDuplicate
		}
		booking.Version = expectedVersion + 1
		d.bookings[booking.ID] = booking.Clone()
		return nil
	})
}

// UpdateDriverLocation sets the live location while the driver is assigned.
func (r *BookingRepository) UpdateDriverLocation(ctx context.Context, id, driverID string, loc domain.Location) error {
	return r.run(func(d *data) error {
		b, ok := d.bookings[id]
		if !ok || b.DriverID != driverID {
			return repository.ErrNotFound
		}
		b.DriverLocation = &domain.Location{Lat: loc.Lat, Lng: loc.Lng}
		return nil
	})
}

func (r *BookingRepository) filter(keep func(b *domain.Booking) bool) []*domain.Booking {
	var out []*domain.Booking
	_ = r.run(func(d *data) error {
		for _, b := range d.bookings {
			if keep(b) {
				out = append(out, b.Clone())
			}
		}
		return nil
	})
	return out
}

func activeForRider(d *data, riderID string) *domain.Booking {
	for _, b := range d.bookings {
		if b.RiderID == riderID && b.State.IsActive() {
			return b
		}
	}
	return nil
}

func activeForDriver(d *data, driverID, excludeID string) *domain.Booking {
	if driverID == "" {
		return nil
	}
	for _, b := range d.bookings {
		if b.ID != excludeID && b.DriverID == driverID && b.State.OccupiesDriver() {
			return b
		}
	}
	return nil
}

func sortOldestFirst(bookings []*domain.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
}

func sortNewestFirst(bookings []*domain.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID > bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
