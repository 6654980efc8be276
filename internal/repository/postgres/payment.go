package postgres

import (
	"context"
	"database/sql"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var settledAt sql.NullTime

	err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &settledAt, &p.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}

	p.SettledAt = settledAt.Time
	return &p, nil
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, amount, method, status, settled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.Amount,
		payment.Method,
		payment.Status,
		nullTime(payment.SettledAt),
		payment.CreatedAt,
	)

	return translate(err)
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT id, booking_id, amount, method, status, settled_at, created_at FROM payments WHERE id = $1`
	return scanPayment(r.q.QueryRowContext(ctx, query, id))
}

// GetByBookingID retrieves the payment of a booking.
func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	query := `SELECT id, booking_id, amount, method, status, settled_at, created_at FROM payments WHERE booking_id = $1`
	return scanPayment(r.q.QueryRowContext(ctx, query, bookingID))
}

// UpdateStatus updates the status of a payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, settledAt time.Time) error {
	query := `UPDATE payments SET status = $1, settled_at = COALESCE($2, settled_at) WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, status, nullTime(settledAt), id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)
