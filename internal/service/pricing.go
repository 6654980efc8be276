package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/events"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// PricingService resolves tariffs and quotes fares.
type PricingService struct {
	schedules repository.PriceScheduleRepository
	cache     redis.CacheStoreInterface
	publisher events.Publisher
	now       func() time.Time
}

// NewPricingService creates a new PricingService. cache may be nil.
func NewPricingService(
	schedules repository.PriceScheduleRepository,
	cache redis.CacheStoreInterface,
	publisher events.Publisher,
) *PricingService {
	return &PricingService{
		schedules: schedules,
		cache:     cache,
		publisher: publisher,
		now:       time.Now,
	}
}

// ResolveSchedule returns the tariff in force at the given time: the
// schedule of that month, else the latest active one, else the default.
func (s *PricingService) ResolveSchedule(ctx context.Context, at time.Time) (domain.PriceSchedule, error) {
	month, year := int(at.Month()), at.Year()

	if s.cache != nil {
		cached, err := s.cache.GetSchedule(ctx, month, year)
		if err != nil {
			log.Printf("[PRICING] cache read failed: %v", err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	schedule, err := s.lookup(ctx, month, year)
	if err != nil {
		return domain.PriceSchedule{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetSchedule(ctx, month, year, &schedule); err != nil {
			log.Printf("[PRICING] cache write failed: %v", err)
		}
	}

	return schedule, nil
}

func (s *PricingService) lookup(ctx context.Context, month, year int) (domain.PriceSchedule, error) {
	schedule, err := s.schedules.GetByMonth(ctx, month, year)
	if err == nil {
		return *schedule, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.PriceSchedule{}, err
	}

	schedule, err = s.schedules.GetLatestActive(ctx)
	if err == nil {
		return *schedule, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.PriceSchedule{}, err
	}

	return domain.DefaultPriceSchedule(), nil
}

// Quote prices a trip of the given distance at the current tariff.
func (s *PricingService) Quote(ctx context.Context, distanceMeters int) (int64, error) {
	fare, _, err := s.QuoteTariff(ctx, distanceMeters)
	return fare, err
}

// QuoteTariff is Quote that also returns the tariff the fare was computed
// with.
func (s *PricingService) QuoteTariff(ctx context.Context, distanceMeters int) (int64, domain.Tariff, error) {
	if distanceMeters < 0 || distanceMeters > domain.MaxTripDistanceMeters {
		return 0, domain.Tariff{}, ErrDistanceOutOfRange
	}
	schedule, err := s.ResolveSchedule(ctx, s.now())
	if err != nil {
		return 0, domain.Tariff{}, err
	}
	return schedule.Fare(distanceMeters), schedule.Tariff(), nil
}

// SetScheduleRequest contains the parameters for setting a month's tariff.
type SetScheduleRequest struct {
	Month      int   `json:"month" validate:"min=1,max=12"`
	Year       int   `json:"year" validate:"min=2000,max=9999"`
	BasePrice  int64 `json:"base_price" validate:"min=0,max=1000000000"`
	PricePerKm int64 `json:"price_per_km" validate:"min=0,max=1000000000"`
	MinPrice   int64 `json:"min_price" validate:"min=0,max=1000000000"`
	Inactive   bool  `json:"inactive"`
}

// SetSchedule creates or replaces the tariff of a month and announces the
// change. Admin only.
func (s *PricingService) SetSchedule(ctx context.Context, actor domain.Actor, req SetScheduleRequest) (*domain.PriceSchedule, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.BasePrice == 0 && req.PricePerKm == 0 && req.MinPrice == 0 {
		return nil, ErrInvalidPriceSchedule
	}

	old, err := s.lookup(ctx, req.Month, req.Year)
	if err != nil {
		return nil, err
	}

	now := s.now()
	schedule := &domain.PriceSchedule{
		ID:         uuid.New().String(),
		Month:      req.Month,
		Year:       req.Year,
		BasePrice:  req.BasePrice,
		PricePerKm: req.PricePerKm,
		MinPrice:   req.MinPrice,
		IsActive:   !req.Inactive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.schedules.Upsert(ctx, schedule); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSchedules(ctx); err != nil {
			log.Printf("[PRICING] cache invalidation failed: %v", err)
		}
	}

	event := events.PriceChanged{
		Month:     req.Month,
		Year:      req.Year,
		Old:       pricesOf(old),
		New:       pricesOf(*schedule),
		ChangedAt: now,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("[PRICING] failed to publish %s: %v", event.RoutingKey(), err)
	}

	return schedule, nil
}

// ListSchedules returns every stored tariff, newest first. Admin only.
func (s *PricingService) ListSchedules(ctx context.Context, actor domain.Actor) ([]*domain.PriceSchedule, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.schedules.List(ctx)
}

func pricesOf(p domain.PriceSchedule) events.Prices {
	return events.Prices{BasePrice: p.BasePrice, PricePerKm: p.PricePerKm, MinPrice: p.MinPrice}
}
