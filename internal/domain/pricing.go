package domain

import (
	"math"
	"time"
)

// Default schedule used when no schedule has ever been configured.
const (
	DefaultBasePrice  int64 = 10000
	DefaultPricePerKm int64 = 10000
	DefaultMinPrice   int64 = 15000

	// MaxTripDistanceMeters bounds the distance a fare is computed for.
	MaxTripDistanceMeters = 2_000_000
	// MaxTripDurationSeconds bounds the reported duration of a trip.
	MaxTripDurationSeconds = 48 * 60 * 60

	fareRoundingUnit = 1000
	maxFareAmount    = 1e15
)

// PriceSchedule holds the tariff for one calendar month.
type PriceSchedule struct {
	ID         string
	Month      int
	Year       int
	BasePrice  int64
	PricePerKm int64
	MinPrice   int64
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Tariff is the part of a PriceSchedule a fare is computed from. Bookings
// keep the tariff they were quoted with.
type Tariff struct {
	BasePrice  int64
	PricePerKm int64
	MinPrice   int64
}

// IsZero reports whether no tariff was recorded.
func (t Tariff) IsZero() bool {
	return t == Tariff{}
}

// Schedule returns a schedule pricing with this tariff.
func (t Tariff) Schedule() PriceSchedule {
	return PriceSchedule{BasePrice: t.BasePrice, PricePerKm: t.PricePerKm, MinPrice: t.MinPrice, IsActive: true}
}

// Tariff returns the prices of the schedule.
func (p PriceSchedule) Tariff() Tariff {
	return Tariff{BasePrice: p.BasePrice, PricePerKm: p.PricePerKm, MinPrice: p.MinPrice}
}

// DefaultPriceSchedule returns the built-in tariff.
func DefaultPriceSchedule() PriceSchedule {
	return PriceSchedule{
		BasePrice:  DefaultBasePrice,
		PricePerKm: DefaultPricePerKm,
		MinPrice:   DefaultMinPrice,
		IsActive:   true,
	}
}

// Fare converts a trip distance into a price, rounded to the nearest 1000
// units and floored at MinPrice.
func (p PriceSchedule) Fare(distanceMeters int) int64 {
	fare := p.RawFare(distanceMeters)
	if fare < p.MinPrice {
		return p.MinPrice
	}
	return fare
}

// RawFare is the rounded distance price before the MinPrice floor. The
// distance is clamped to [0, MaxTripDistanceMeters] and the price to
// maxFareAmount, so the conversion to int64 cannot overflow.
func (p PriceSchedule) RawFare(distanceMeters int) int64 {
	distanceMeters = min(max(distanceMeters, 0), MaxTripDistanceMeters)
	km := float64(distanceMeters) / 1000
	raw := math.Min(float64(p.BasePrice)+km*float64(p.PricePerKm), maxFareAmount)
	return int64(math.Round(raw/fareRoundingUnit)) * fareRoundingUnit
}
