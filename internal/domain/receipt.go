package domain

import "time"

// Receipt is the rider-facing summary of a completed trip.
type Receipt struct {
	BookingID       string
	RiderID         string
	DriverID        string
	Pickup          Place
	Dropoff         Place
	DistanceMeters  int
	DurationSeconds int
	BaseFare        int64
	DistanceFare    int64
	MinimumApplied  bool
	TotalFare       int64
	PaymentMethod   PaymentMethod
	PaymentStatus   BookingPaymentStatus
	StartedAt       time.Time
	CompletedAt     time.Time
	IssuedAt        time.Time
}
