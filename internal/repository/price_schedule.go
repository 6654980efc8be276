package repository

import (
	"context"

	"ridehail/internal/domain"
)

// PriceScheduleRepository defines the persistence operations for tariffs.
type PriceScheduleRepository interface {
	// GetByMonth retrieves the active schedule for a month/year.
	GetByMonth(ctx context.Context, month, year int) (*domain.PriceSchedule, error)

	// GetLatestActive retrieves the most recent active schedule.
	GetLatestActive(ctx context.Context) (*domain.PriceSchedule, error)

	// Upsert creates or replaces the schedule for its month/year.
	Upsert(ctx context.Context, schedule *domain.PriceSchedule) error

	// List retrieves all schedules, newest first.
	List(ctx context.Context) ([]*domain.PriceSchedule, error)
}
