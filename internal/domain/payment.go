package domain

import "time"

// PaymentStatus represents the current status of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSettled  PaymentStatus = "SETTLED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is the per-booking settlement record, separate from the wallet ledger.
type Payment struct {
	ID        string
	BookingID string
	Amount    int64
	Method    PaymentMethod
	Status    PaymentStatus
	SettledAt time.Time
	CreatedAt time.Time
}
