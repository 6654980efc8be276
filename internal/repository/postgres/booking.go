package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

const bookingColumns = `id, rider_id, driver_id, pickup_address, pickup_lat, pickup_lng,
	dropoff_address, dropoff_lat, dropoff_lng, distance_meters, duration_seconds, fare_amount,
	state, payment_method, payment_status, driver_lat, driver_lng, rider_has_rated,
	rejection_history, settlement_pending, version, cancelled_by, cancel_reason,
	created_at, updated_at, accepted_at, started_at, completed_at, cancelled_at,
	tariff_base_price, tariff_price_per_km, tariff_min_price`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var driverID, cancelledBy, cancelReason sql.NullString
	var driverLat, driverLng sql.NullFloat64
	var rejections []byte
	var acceptedAt, startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&b.ID,
		&b.RiderID,
		&driverID,
		&b.Pickup.Address,
		&b.Pickup.Lat,
		&b.Pickup.Lng,
		&b.Dropoff.Address,
		&b.Dropoff.Lat,
		&b.Dropoff.Lng,
		&b.DistanceMeters,
		&b.DurationSeconds,
		&b.FareAmount,
		&b.State,
		&b.PaymentMethod,
		&b.PaymentStatus,
		&driverLat,
		&driverLng,
		&b.RiderHasRated,
		&rejections,
		&b.SettlementPending,
		&b.Version,
		&cancelledBy,
		&cancelReason,
		&b.CreatedAt,
		&b.UpdatedAt,
		&acceptedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
		&b.Tariff.BasePrice,
		&b.Tariff.PricePerKm,
		&b.Tariff.MinPrice,
	)
	if err != nil {
		return nil, translate(err)
	}

	b.DriverID = driverID.String
	b.CancelledBy = cancelledBy.String
	b.CancelReason = cancelReason.String
	if driverLat.Valid && driverLng.Valid {
		b.DriverLocation = &domain.Location{Lat: driverLat.Float64, Lng: driverLng.Float64}
	}
	if len(rejections) > 0 {
		if err := json.Unmarshal(rejections, &b.Rejections); err != nil {
			return nil, err
		}
	}
	b.AcceptedAt = acceptedAt.Time
	b.StartedAt = startedAt.Time
	b.CompletedAt = completedAt.Time
	b.CancelledAt = cancelledAt.Time

	return &b, nil
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

func rejectionsJSON(b *domain.Booking) ([]byte, error) {
	if len(b.Rejections) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(b.Rejections)
}

func driverCoords(b *domain.Booking) (sql.NullFloat64, sql.NullFloat64) {
	if b.DriverLocation == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: b.DriverLocation.Lat, Valid: true},
		sql.NullFloat64{Float64: b.DriverLocation.Lng, Valid: true}
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)`

	rejections, err := rejectionsJSON(b)
	if err != nil {
		return err
	}
	lat, lng := driverCoords(b)

	_, err = r.q.ExecContext(ctx, query,
		b.ID,
		b.RiderID,
		nullString(b.DriverID),
		b.Pickup.Address,
		b.Pickup.Lat,
		b.Pickup.Lng,
		b.Dropoff.Address,
		b.Dropoff.Lat,
		b.Dropoff.Lng,
		b.DistanceMeters,
		b.DurationSeconds,
		b.FareAmount,
		b.State,
		b.PaymentMethod,
		b.PaymentStatus,
		lat,
		lng,
		b.RiderHasRated,
		rejections,
		b.SettlementPending,
		b.Version,
		nullString(b.CancelledBy),
		nullString(b.CancelReason),
		b.CreatedAt,
		b.UpdatedAt,
		nullTime(b.AcceptedAt),
		nullTime(b.StartedAt),
		nullTime(b.CompletedAt),
		nullTime(b.CancelledAt),
		b.Tariff.BasePrice,
		b.Tariff.PricePerKm,
		b.Tariff.MinPrice,
	)

	return translate(err)
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.q.QueryRowContext(ctx, query, id))
}

// GetActiveByRider returns the rider's active booking or nil.
func (r *BookingRepository) GetActiveByRider(ctx context.Context, riderID string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE rider_id = $1 AND state IN ('CREATED', 'ACCEPTED', 'IN_PROGRESS')
		LIMIT 1`

	b, err := scanBooking(r.q.QueryRowContext(ctx, query, riderID))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// GetActiveByDriver returns the driver's accepted or in-progress booking or nil.
func (r *BookingRepository) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE driver_id = $1 AND state IN ('ACCEPTED', 'IN_PROGRESS')
		LIMIT 1`

	b, err := scanBooking(r.q.QueryRowContext(ctx, query, driverID))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// ListByState retrieves bookings in the given state, oldest first.
func (r *BookingRepository) ListByState(ctx context.Context, state domain.BookingState) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE state = $1 ORDER BY created_at, id`
	return r.queryBookings(ctx, query, state)
}

// ListByDriver retrieves every booking assigned to the driver, newest first.
func (r *BookingRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE driver_id = $1 ORDER BY created_at DESC, id DESC`
	return r.queryBookings(ctx, query, driverID)
}

// ListByRider retrieves the rider's bookings, newest first.
func (r *BookingRepository) ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Booking, error) {
	if limit <= 0 {
		query := `SELECT ` + bookingColumns + ` FROM bookings WHERE rider_id = $1 ORDER BY created_at DESC, id DESC`
		return r.queryBookings(ctx, query, riderID)
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE rider_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	return r.queryBookings(ctx, query, riderID, limit)
}

// ListPendingSettlement retrieves completed bookings still awaiting settlement.
func (r *BookingRepository) ListPendingSettlement(ctx context.Context, completedBefore time.Time) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE state = 'COMPLETED' AND settlement_pending AND completed_at < $1
		ORDER BY completed_at`
	return r.queryBookings(ctx, query, completedBefore)
}

// Update writes the booking if the stored version matches expectedVersion.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking, expectedVersion int) error {
	query := `
		UPDATE bookings SET
			driver_id = $1, distance_meters = $2, duration_seconds = $3, fare_amount = $4,
			state = $5, payment_method = $6, payment_status = $7, driver_lat = $8, driver_lng = $9,
			rider_has_rated = $10, rejection_history = $11, settlement_pending = $12,
			cancelled_by = $13, cancel_reason = $14, updated_at = $15, accepted_at = $16,
			started_at = $17, completed_at = $18, cancelled_at = $19, version = version + 1
		WHERE id = $20 AND version = $21
	`

	rejections, err := rejectionsJSON(b)
	if err != nil {
		return err
	}
	lat, lng := driverCoords(b)

	result, err := r.q.ExecContext(ctx, query,
		nullString(b.DriverID),
		b.DistanceMeters,
		b.DurationSeconds,
		b.FareAmount,
		b.State,
		b.PaymentMethod,
		b.PaymentStatus,
		lat,
		lng,
		b.RiderHasRated,
		rejections,
		b.SettlementPending,
		nullString(b.CancelledBy),
		nullString(b.CancelReason),
		b.UpdatedAt,
		nullTime(b.AcceptedAt),
		nullTime(b.StartedAt),
		nullTime(b.CompletedAt),
		nullTime(b.CancelledAt),
		b.ID,
		expectedVersion,
	)
	if err != nil {
		return translate(err)
	}

	if err := expectOne(result); err != nil {
		// Distinguish a missing row from a lost race.
		var exists bool
		if qerr := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, b.ID).Scan(&exists); qerr != nil {
			return qerr
		}
		if exists {
			return repository.ErrStaleVersion
		}
		return err
	}

	b.Version = expectedVersion + 1
	return nil
}

// UpdateDriverLocation sets the live location while the driver is assigned.
func (r *BookingRepository) UpdateDriverLocation(ctx context.Context, id, driverID string, loc domain.Location) error {
	query := `UPDATE bookings SET driver_lat = $1, driver_lng = $2 WHERE id = $3 AND driver_id = $4`

	result, err := r.q.ExecContext(ctx, query, loc.Lat, loc.Lng, id, driverID)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
