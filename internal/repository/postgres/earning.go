package postgres

import (
	"context"
	"database/sql"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// EarningRepository is a PostgreSQL implementation of repository.EarningRepository.
type EarningRepository struct {
	q Querier
}

// NewEarningRepository creates a new PostgreSQL earning repository.
func NewEarningRepository(db *sql.DB) *EarningRepository {
	return &EarningRepository{q: db}
}

const earningColumns = `id, driver_id, booking_id, fare_amount, platform_fee_percent, platform_fee_amount,
	net_earning, bonus, bonus_reason, tip, total_earning, distance_meters, duration_seconds,
	settlement_status, created_at, updated_at`

func scanEarning(row rowScanner) (*domain.DriverEarning, error) {
	var e domain.DriverEarning
	err := row.Scan(
		&e.ID,
		&e.DriverID,
		&e.BookingID,
		&e.FareAmount,
		&e.PlatformFeePercent,
		&e.PlatformFeeAmount,
		&e.NetEarning,
		&e.Bonus,
		&e.BonusReason,
		&e.Tip,
		&e.TotalEarning,
		&e.DistanceMeters,
		&e.DurationSeconds,
		&e.SettlementStatus,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// Create persists a new earning.
func (r *EarningRepository) Create(ctx context.Context, e *domain.DriverEarning) error {
	query := `INSERT INTO driver_earnings (` + earningColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.q.ExecContext(ctx, query,
		e.ID,
		e.DriverID,
		e.BookingID,
		e.FareAmount,
		e.PlatformFeePercent,
		e.PlatformFeeAmount,
		e.NetEarning,
		e.Bonus,
		e.BonusReason,
		e.Tip,
		e.TotalEarning,
		e.DistanceMeters,
		e.DurationSeconds,
		e.SettlementStatus,
		e.CreatedAt,
		e.UpdatedAt,
	)

	return translate(err)
}

// GetByID retrieves an earning by ID.
func (r *EarningRepository) GetByID(ctx context.Context, id string) (*domain.DriverEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM driver_earnings WHERE id = $1`
	return scanEarning(r.q.QueryRowContext(ctx, query, id))
}

// GetByBookingID retrieves the earning of a booking.
func (r *EarningRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.DriverEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM driver_earnings WHERE booking_id = $1`
	return scanEarning(r.q.QueryRowContext(ctx, query, bookingID))
}

// ListByDriver retrieves a driver's earnings, newest first.
func (r *EarningRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.DriverEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM driver_earnings WHERE driver_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var earnings []*domain.DriverEarning
	for rows.Next() {
		e, err := scanEarning(rows)
		if err != nil {
			return nil, err
		}
		earnings = append(earnings, e)
	}

	return earnings, rows.Err()
}

// Update writes bonus, tip, totals and settlement status.
func (r *EarningRepository) Update(ctx context.Context, e *domain.DriverEarning) error {
	query := `
		UPDATE driver_earnings
		SET bonus = $1, bonus_reason = $2, tip = $3, total_earning = $4, settlement_status = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.q.ExecContext(ctx, query,
		e.Bonus,
		e.BonusReason,
		e.Tip,
		e.TotalEarning,
		e.SettlementStatus,
		e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Ensure EarningRepository implements repository.EarningRepository.
var _ repository.EarningRepository = (*EarningRepository)(nil)
