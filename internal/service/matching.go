package service

import (
	"context"

	"ridehail/internal/domain"
	"ridehail/internal/geo"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// DefaultMatchingRadiusKm is the fixed search radius around a driver.
const DefaultMatchingRadiusKm = 15.0

// MatchingService decides which bookings a driver can see and derives
// driver availability from active bookings.
type MatchingService struct {
	bookings      repository.BookingRepository
	locationStore redis.LocationStoreInterface
	radiusKm      float64
}

// NewMatchingService creates a new MatchingService. A non-positive radius
// uses DefaultMatchingRadiusKm.
func NewMatchingService(
	bookings repository.BookingRepository,
	locationStore redis.LocationStoreInterface,
	radiusKm float64,
) *MatchingService {
	if radiusKm <= 0 {
		radiusKm = DefaultMatchingRadiusKm
	}
	return &MatchingService{
		bookings:      bookings,
		locationStore: locationStore,
		radiusKm:      radiusKm,
	}
}

// VisibleBooking is one entry of a driver's polling result.
type VisibleBooking struct {
	Booking *domain.Booking
	// Assigned is true for bookings already held by the driver.
	Assigned bool
	// DistanceToPickupKm is set for open bookings only.
	DistanceToPickupKm float64
}

// VisibleBookings returns every booking assigned to the driver, newest
// first, followed by the open bookings within the radius of the driver's
// last known location, nearest first. Open bookings the driver already
// rejected are hidden.
func (s *MatchingService) VisibleBookings(ctx context.Context, driverID string) ([]VisibleBooking, error) {
	own, err := s.bookings.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}

	result := make([]VisibleBooking, 0, len(own))
	for _, b := range own {
		result = append(result, VisibleBooking{Booking: b, Assigned: true})
	}

	loc, err := s.locationStore.GetLocation(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		// Without a position only the driver's own bookings are visible.
		return result, nil
	}

	open, err := s.bookings.ListByState(ctx, domain.BookingStateCreated)
	if err != nil {
		return nil, err
	}

	var nearby []VisibleBooking
	for _, b := range open {
		if b.HasRejected(driverID) {
			continue
		}
		d := geo.DistanceKm(loc.Lat, loc.Lng, b.Pickup.Lat, b.Pickup.Lng)
		if d > s.radiusKm {
			continue
		}
		nearby = append(nearby, VisibleBooking{Booking: b, DistanceToPickupKm: d})
	}
	geo.SortByDistance(nearby, func(v VisibleBooking) float64 { return v.DistanceToPickupKm })

	return append(result, nearby...), nil
}

// IsDriverAvailable reports whether the driver holds no ACCEPTED or
// IN_PROGRESS booking.
func (s *MatchingService) IsDriverAvailable(ctx context.Context, driverID string) (bool, error) {
	active, err := s.bookings.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return false, err
	}
	return active == nil, nil
}

// UpdateDriverLocation records the driver's current position.
func (s *MatchingService) UpdateDriverLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if driverID == "" {
		return ErrForbidden
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidLocation
	}
	return s.locationStore.UpdateLocation(ctx, driverID, lat, lng)
}

// GoOffline forgets the driver's position so no open bookings are shown.
func (s *MatchingService) GoOffline(ctx context.Context, driverID string) error {
	return s.locationStore.RemoveLocation(ctx, driverID)
}
