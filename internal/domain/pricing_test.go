package domain

import (
	"math"
	"testing"
)

func TestPriceSchedule_Fare(t *testing.T) {
	t.Parallel()
	p := DefaultPriceSchedule()

	testCases := []struct {
		name     string
		distance int
		want     int64
	}{
		{name: "typical trip", distance: 5200, want: 62000},
		{name: "floored at minimum", distance: 100, want: 15000},
		{name: "negative treated as zero", distance: -5000, want: 15000},
		{name: "clamped to longest trip", distance: MaxTripDistanceMeters + 1, want: 20010000},
		{name: "huge distance does not wrap", distance: math.MaxInt64 / 2, want: 20010000},
	}

	for _, tc := range testCases {
		if got := p.Fare(tc.distance); got != tc.want {
			t.Errorf("%s: Fare(%d) = %d, want %d", tc.name, tc.distance, got, tc.want)
		}
	}
}

func TestPriceSchedule_RawFareCapsExtremeTariffs(t *testing.T) {
	t.Parallel()
	p := PriceSchedule{BasePrice: math.MaxInt64, PricePerKm: math.MaxInt64, MinPrice: 15000}

	got := p.RawFare(MaxTripDistanceMeters)
	if got <= 0 || got > int64(maxFareAmount) {
		t.Errorf("RawFare = %d, want a positive amount capped at %d", got, int64(maxFareAmount))
	}
}

func TestPriceSchedule_RawFareIgnoresMinimum(t *testing.T) {
	t.Parallel()
	p := DefaultPriceSchedule()

	if got := p.RawFare(500); got != 15000 {
		t.Errorf("RawFare(500) = %d, want 15000", got)
	}
	if got := p.RawFare(100); got != 11000 {
		t.Errorf("RawFare(100) = %d, want 11000", got)
	}
}
