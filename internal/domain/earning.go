package domain

import (
	"math"
	"time"
)

// SettlementStatus tracks whether an earning reached the driver's wallet.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "PENDING"
	SettlementPaid    SettlementStatus = "PAID"
)

// DriverEarning is the settlement record of one completed booking.
type DriverEarning struct {
	ID                 string
	DriverID           string
	BookingID          string
	FareAmount         int64
	PlatformFeePercent float64
	PlatformFeeAmount  int64
	NetEarning         int64
	Bonus              int64
	BonusReason        string
	Tip                int64
	TotalEarning       int64
	DistanceMeters     int
	DurationSeconds    int
	SettlementStatus   SettlementStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PlatformFee returns round(fare * feePercent). feePercent is a fraction (0.2 = 20%).
func PlatformFee(fare int64, feePercent float64) int64 {
	return int64(math.Round(float64(fare) * feePercent))
}

// NewDriverEarning splits the fare of a completed booking.
func NewDriverEarning(b *Booking, feePercent float64) *DriverEarning {
	fee := PlatformFee(b.FareAmount, feePercent)
	e := &DriverEarning{
		DriverID:           b.DriverID,
		BookingID:          b.ID,
		FareAmount:         b.FareAmount,
		PlatformFeePercent: feePercent,
		PlatformFeeAmount:  fee,
		NetEarning:         b.FareAmount - fee,
		DistanceMeters:     b.DistanceMeters,
		DurationSeconds:    b.DurationSeconds,
		SettlementStatus:   SettlementPending,
	}
	e.Recompute()
	return e
}

// Recompute derives TotalEarning from its parts. TotalEarning is never set directly.
func (e *DriverEarning) Recompute() {
	e.TotalEarning = e.NetEarning + e.Bonus + e.Tip
}
