package service

import (
	"context"
	"fmt"
	"time"

	"ridehail/internal/domain"
)

// ReceiptService handles receipt generation.
type ReceiptService struct {
	pricing             *PricingService
	notificationService *NotificationService
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(pricing *PricingService, notificationService *NotificationService) *ReceiptService {
	return &ReceiptService{
		pricing:             pricing,
		notificationService: notificationService,
	}
}

// GenerateReceipt builds the receipt of a completed booking. The fare
// breakdown uses the tariff the booking was quoted with; bookings that
// predate recorded tariffs fall back to the schedule of their month.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, b *domain.Booking) (*domain.Receipt, error) {
	if b.State != domain.BookingStateCompleted {
		return nil, conflictAt(ErrInvalidTransition, b.State)
	}

	schedule := b.Tariff.Schedule()
	if b.Tariff.IsZero() {
		resolved, err := s.pricing.ResolveSchedule(ctx, b.CreatedAt)
		if err != nil {
			return nil, err
		}
		schedule = resolved
	}

	baseFare := min(schedule.BasePrice, b.FareAmount)

	receipt := &domain.Receipt{
		BookingID:       b.ID,
		RiderID:         b.RiderID,
		DriverID:        b.DriverID,
		Pickup:          b.Pickup,
		Dropoff:         b.Dropoff,
		DistanceMeters:  b.DistanceMeters,
		DurationSeconds: b.DurationSeconds,
		BaseFare:        baseFare,
		DistanceFare:    b.FareAmount - baseFare,
		MinimumApplied:  schedule.RawFare(b.DistanceMeters) < schedule.MinPrice,
		TotalFare:       b.FareAmount,
		PaymentMethod:   b.PaymentMethod,
		PaymentStatus:   b.PaymentStatus,
		StartedAt:       b.StartedAt,
		CompletedAt:     b.CompletedAt,
		IssuedAt:        time.Now(),
	}

	// Notify rider that receipt is ready
	if s.notificationService != nil {
		_ = s.notificationService.NotifyReceiptReady(ctx, receipt)
	}

	return receipt, nil
}

// FormatReceipt formats the receipt as a string (for email/print).
func (s *ReceiptService) FormatReceipt(receipt *domain.Receipt) string {
	minimum := ""
	if receipt.MinimumApplied {
		minimum = " (minimum fare)"
	}

	return `
=====================================
        RIDE RECEIPT
=====================================
Booking ID: ` + receipt.BookingID + `
Date: ` + receipt.CompletedAt.Format("Jan 02, 2006 3:04 PM") + `

TRIP DETAILS
-------------------------------------
Pickup:   ` + formatPlace(receipt.Pickup) + `
Dropoff:  ` + formatPlace(receipt.Dropoff) + `
Duration: ` + formatDuration(time.Duration(receipt.DurationSeconds)*time.Second) + `
Distance: ` + formatKm(receipt.DistanceMeters) + ` km

FARE BREAKDOWN
-------------------------------------
Base Fare:     ` + formatAmount(receipt.BaseFare) + `
Distance:      ` + formatAmount(receipt.DistanceFare) + `
-------------------------------------
TOTAL:         ` + formatAmount(receipt.TotalFare) + minimum + `

PAYMENT
-------------------------------------
Method: ` + string(receipt.PaymentMethod) + `
Status: ` + string(receipt.PaymentStatus) + `

=====================================
     Thank you for riding with us!
=====================================
`
}

func formatPlace(p domain.Place) string {
	if p.Address != "" {
		return p.Address
	}
	return fmt.Sprintf("(%.4f, %.4f)", p.Lat, p.Lng)
}

func formatKm(meters int) string {
	return fmt.Sprintf("%.2f", float64(meters)/1000)
}

func formatAmount(amount int64) string {
	return fmt.Sprintf("%d", amount)
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	return fmt.Sprintf("%d min", minutes)
}
