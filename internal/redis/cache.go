package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ridehail/internal/domain"
)

// PriceScheduleCacheTTL bounds how long a resolved tariff is served from cache.
const PriceScheduleCacheTTL = 10 * time.Minute

// Resolved schedules live in one hash so a tariff change clears them together.
const priceScheduleCacheKey = "cache:price_schedules"

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

func periodField(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// GetSchedule returns the schedule resolved for a month, or nil on a miss.
func (s *CacheStore) GetSchedule(ctx context.Context, month, year int) (*domain.PriceSchedule, error) {
	data, err := s.client.HGet(ctx, priceScheduleCacheKey, periodField(month, year)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var schedule domain.PriceSchedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// SetSchedule caches the schedule resolved for a month.
func (s *CacheStore) SetSchedule(ctx context.Context, month, year int, schedule *domain.PriceSchedule) error {
	data, err := json.Marshal(schedule)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, priceScheduleCacheKey, periodField(month, year), data)
	pipe.Expire(ctx, priceScheduleCacheKey, PriceScheduleCacheTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateSchedules drops every cached resolution.
func (s *CacheStore) InvalidateSchedules(ctx context.Context) error {
	return s.client.Del(ctx, priceScheduleCacheKey).Err()
}
