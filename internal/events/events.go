// Package events publishes domain facts for downstream consumers such as
// the rating subsystem and notification fan-out.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Routing keys.
const (
	TripCompletedKey    = "trip.completed"
	PriceChangedKey     = "price.changed"
	BookingCancelledKey = "booking.cancelled"
)

// Event is a fact that can be routed by key.
type Event interface {
	RoutingKey() string
}

// TripCompleted is emitted when a booking reaches COMPLETED.
type TripCompleted struct {
	BookingID   string    `json:"booking_id"`
	RiderID     string    `json:"rider_id"`
	DriverID    string    `json:"driver_id"`
	FareAmount  int64     `json:"fare_amount"`
	CompletedAt time.Time `json:"completed_at"`
}

func (TripCompleted) RoutingKey() string { return TripCompletedKey }

// Prices is a tariff snapshot carried by PriceChanged.
type Prices struct {
	BasePrice  int64 `json:"base_price"`
	PricePerKm int64 `json:"price_per_km"`
	MinPrice   int64 `json:"min_price"`
}

// PriceChanged is emitted when an admin sets a month's tariff.
type PriceChanged struct {
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Old       Prices    `json:"old"`
	New       Prices    `json:"new"`
	ChangedAt time.Time `json:"changed_at"`
}

func (PriceChanged) RoutingKey() string { return PriceChangedKey }

// BookingCancelled is emitted when a booking is cancelled.
type BookingCancelled struct {
	BookingID   string    `json:"booking_id"`
	RiderID     string    `json:"rider_id"`
	DriverID    string    `json:"driver_id,omitempty"`
	CancelledBy string    `json:"cancelled_by"`
	Reason      string    `json:"reason,omitempty"`
	Refunded    int64     `json:"refunded"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (BookingCancelled) RoutingKey() string { return BookingCancelledKey }

// Publisher delivers events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the process log. It is used when no broker
// is configured.
type LogPublisher struct{}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish logs the event as JSON.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	log.Printf("[EVENT] %s %s", event.RoutingKey(), body)
	return nil
}

// Ensure publishers implement Publisher.
var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*AMQPPublisher)(nil)
)
