package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"ridehail/internal/domain"
)

func TestGenerateReceipt(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	receipts := NewReceiptService(env.pricing, nil)

	open, _ := env.bookings.Create(ctx, rider2, cashRequest(3000))
	_, err := receipts.GenerateReceipt(ctx, open)
	assertConflictAt(t, err, domain.BookingStateCreated)

	b := env.completedBooking(t, rider, driver, 5200)

	receipt, err := receipts.GenerateReceipt(ctx, b)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if receipt.TotalFare != 62000 || receipt.BaseFare != 10000 || receipt.DistanceFare != 52000 {
		t.Errorf("unexpected breakdown: %+v", receipt)
	}
	if receipt.MinimumApplied {
		t.Error("minimum fare must not apply to a 5.2 km trip")
	}

	text := receipts.FormatReceipt(receipt)
	for _, want := range []string{b.ID, "Jl. Sudirman 1", "5.20 km", "62000", "AWAITING_CONFIRMATION"} {
		if !strings.Contains(text, want) {
			t.Errorf("receipt text missing %q", want)
		}
	}
}

func TestGenerateReceipt_MinimumFare(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	receipts := NewReceiptService(env.pricing, nil)

	b := env.completedBooking(t, rider, driver, 100)

	receipt, err := receipts.GenerateReceipt(context.Background(), b)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !receipt.MinimumApplied || receipt.TotalFare != 15000 {
		t.Errorf("expected minimum fare, got %+v", receipt)
	}
	if !strings.Contains(receipts.FormatReceipt(receipt), "(minimum fare)") {
		t.Error("expected minimum fare marker in text")
	}
}

func TestGenerateReceipt_NaturalMinimumIsNotFlagged(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	receipts := NewReceiptService(env.pricing, nil)

	// 500 m prices at exactly the minimum without the floor being applied.
	b := env.completedBooking(t, rider, driver, 500)

	receipt, err := receipts.GenerateReceipt(context.Background(), b)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if receipt.TotalFare != 15000 {
		t.Fatalf("expected fare 15000, got %d", receipt.TotalFare)
	}
	if receipt.MinimumApplied {
		t.Error("minimum fare must not be flagged when the distance price reaches it")
	}
}

func TestGenerateReceipt_UsesQuotedTariff(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	receipts := NewReceiptService(env.pricing, nil)

	b := env.completedBooking(t, rider, driver, 5200)

	now := time.Now()
	if _, err := env.pricing.SetSchedule(ctx, admin, SetScheduleRequest{
		Month: int(now.Month()), Year: now.Year(), BasePrice: 20000, PricePerKm: 5000, MinPrice: 70000,
	}); err != nil {
		t.Fatalf("set schedule: %v", err)
	}

	receipt, err := receipts.GenerateReceipt(ctx, b)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if receipt.BaseFare != 10000 || receipt.DistanceFare != 52000 || receipt.TotalFare != 62000 {
		t.Errorf("breakdown changed with the new schedule: %+v", receipt)
	}
	if receipt.MinimumApplied {
		t.Error("minimum of the new schedule must not apply to an earlier quote")
	}
}
