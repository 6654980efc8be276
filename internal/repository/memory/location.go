package memory

import (
	"context"
	"sync"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
)

// LocationStore keeps driver positions in a map. It stands in for the Redis
// GEO store when Redis is disabled.
type LocationStore struct {
	mu        sync.RWMutex
	locations map[string]domain.Location
}

// NewLocationStore creates an empty LocationStore.
func NewLocationStore() *LocationStore {
	return &LocationStore{locations: make(map[string]domain.Location)}
}

// UpdateLocation stores a driver's location.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[driverID] = domain.Location{Lat: lat, Lng: lng}
	return nil
}

// GetLocation returns the driver's location or nil.
func (s *LocationStore) GetLocation(ctx context.Context, driverID string) (*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[driverID]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

// RemoveLocation forgets a driver's location.
func (s *LocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locations, driverID)
	return nil
}

// Ensure LocationStore implements redis.LocationStoreInterface.
var _ redis.LocationStoreInterface = (*LocationStore)(nil)
