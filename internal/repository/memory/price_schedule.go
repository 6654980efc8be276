package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// PriceScheduleRepository is an in-memory implementation of
// repository.PriceScheduleRepository.
type PriceScheduleRepository struct {
	run runner
}

func scheduleKey(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// GetByMonth retrieves the active schedule for a month/year.
func (r *PriceScheduleRepository) GetByMonth(ctx context.Context, month, year int) (*domain.PriceSchedule, error) {
	var out *domain.PriceSchedule
	err := r.run(func(d *data) error {
		s, ok := d.schedules[scheduleKey(month, year)]
		if !ok || !s.IsActive {
			return repository.ErrNotFound
		}
		c := *s
		out = &c
		return nil
	})
	return out, err
}

// GetLatestActive retrieves the most recent active schedule.
func (r *PriceScheduleRepository) GetLatestActive(ctx context.Context) (*domain.PriceSchedule, error) {
	all, _ := r.List(ctx)
	for _, s := range all {
		if s.IsActive {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Upsert creates or replaces the schedule for its month/year.
func (r *PriceScheduleRepository) Upsert(ctx context.Context, schedule *domain.PriceSchedule) error {
	return r.run(func(d *data) error {
		key := scheduleKey(schedule.Month, schedule.Year)
		if existing, ok := d.schedules[key]; ok {
			schedule.ID = existing.ID
			schedule.CreatedAt = existing.CreatedAt
		}
		schedule.UpdatedAt = time.Now()
		c := *schedule
		d.schedules[key] = &c
		return nil
	})
}

// List retrieves all schedules, newest period first.
func (r *PriceScheduleRepository) List(ctx context.Context) ([]*domain.PriceSchedule, error) {
	var out []*domain.PriceSchedule
	err := r.run(func(d *data) error {
		for _, s := range d.schedules {
			c := *s
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, err
}

// Ensure PriceScheduleRepository implements repository.PriceScheduleRepository.
var _ repository.PriceScheduleRepository = (*PriceScheduleRepository)(nil)
