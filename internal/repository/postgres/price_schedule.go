package postgres

import (
	"context"
	"database/sql"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// PriceScheduleRepository is a PostgreSQL implementation of
// repository.PriceScheduleRepository.
type PriceScheduleRepository struct {
	q Querier
}

// NewPriceScheduleRepository creates a new PostgreSQL price schedule repository.
func NewPriceScheduleRepository(db *sql.DB) *PriceScheduleRepository {
	return &PriceScheduleRepository{q: db}
}

const scheduleColumns = `id, month, year, base_price, price_per_km, min_price, is_active, created_at, updated_at`

func scanSchedule(row rowScanner) (*domain.PriceSchedule, error) {
	var s domain.PriceSchedule
	err := row.Scan(
		&s.ID,
		&s.Month,
		&s.Year,
		&s.BasePrice,
		&s.PricePerKm,
		&s.MinPrice,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// GetByMonth retrieves the active schedule for a month/year.
func (r *PriceScheduleRepository) GetByMonth(ctx context.Context, month, year int) (*domain.PriceSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM price_schedules WHERE month = $1 AND year = $2 AND is_active`
	return scanSchedule(r.q.QueryRowContext(ctx, query, month, year))
}

// GetLatestActive retrieves the most recent active schedule.
func (r *PriceScheduleRepository) GetLatestActive(ctx context.Context) (*domain.PriceSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM price_schedules WHERE is_active ORDER BY year DESC, month DESC LIMIT 1`
	return scanSchedule(r.q.QueryRowContext(ctx, query))
}

// Upsert creates or replaces the schedule for its month/year.
func (r *PriceScheduleRepository) Upsert(ctx context.Context, s *domain.PriceSchedule) error {
	query := `
		INSERT INTO price_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (month, year) DO UPDATE SET
			base_price = EXCLUDED.base_price,
			price_per_km = EXCLUDED.price_per_km,
			min_price = EXCLUDED.min_price,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	return r.q.QueryRowContext(ctx, query,
		s.ID,
		s.Month,
		s.Year,
		s.BasePrice,
		s.PricePerKm,
		s.MinPrice,
		s.IsActive,
		now,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// List retrieves all schedules, newest period first.
func (r *PriceScheduleRepository) List(ctx context.Context) ([]*domain.PriceSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM price_schedules ORDER BY year DESC, month DESC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*domain.PriceSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}

	return schedules, rows.Err()
}

// Ensure PriceScheduleRepository implements repository.PriceScheduleRepository.
var _ repository.PriceScheduleRepository = (*PriceScheduleRepository)(nil)
