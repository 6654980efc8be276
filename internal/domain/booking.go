package domain

import "time"

// BookingState represents the lifecycle state of a booking.
type BookingState string

const (
	BookingStateCreated    BookingState = "CREATED"
	BookingStateAccepted   BookingState = "ACCEPTED"
	BookingStateInProgress BookingState = "IN_PROGRESS"
	BookingStateCompleted  BookingState = "COMPLETED"
	BookingStateCancelled  BookingState = "CANCELLED"
)

// IsActive reports whether the state still occupies the rider.
func (s BookingState) IsActive() bool {
	return s == BookingStateCreated || s == BookingStateAccepted || s == BookingStateInProgress
}

// IsTerminal reports whether no further transition is allowed.
func (s BookingState) IsTerminal() bool {
	return s == BookingStateCompleted || s == BookingStateCancelled
}

// OccupiesDriver reports whether a driver assigned in this state is busy.
func (s BookingState) OccupiesDriver() bool {
	return s == BookingStateAccepted || s == BookingStateInProgress
}

// PaymentMethod represents how the rider pays for a booking.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// Valid reports whether the method is supported.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodTransfer
}

// BookingPaymentStatus is the rider-facing settlement status of a booking.
type BookingPaymentStatus string

const (
	BookingPaymentUnpaid               BookingPaymentStatus = "UNPAID"
	BookingPaymentAwaitingConfirmation BookingPaymentStatus = "AWAITING_CONFIRMATION"
	BookingPaymentPaid                 BookingPaymentStatus = "PAID"
)

// Place is an addressed point on the map.
type Place struct {
	Address string
	Lat     float64
	Lng     float64
}

// Location is a bare coordinate pair.
type Location struct {
	Lat float64
	Lng float64
}

// Rejection records a driver declining an already accepted booking.
type Rejection struct {
	DriverID   string    `json:"driver_id"`
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
}

// Booking represents a single ride request and its trip.
type Booking struct {
	ID                string
	RiderID           string
	DriverID          string // empty while unassigned
	Pickup            Place
	Dropoff           Place
	DistanceMeters    int
	DurationSeconds   int
	FareAmount        int64
	Tariff            Tariff
	State             BookingState
	PaymentMethod     PaymentMethod
	PaymentStatus     BookingPaymentStatus
	DriverLocation    *Location
	RiderHasRated     bool
	Rejections        []Rejection
	SettlementPending bool
	Version           int
	CancelledBy       string
	CancelReason      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	AcceptedAt        time.Time
	StartedAt         time.Time
	CompletedAt       time.Time
	CancelledAt       time.Time
}

// HasRejected reports whether the driver previously declined this booking.
func (b *Booking) HasRejected(driverID string) bool {
	for _, r := range b.Rejections {
		if r.DriverID == driverID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the booking.
func (b *Booking) Clone() *Booking {
	c := *b
	if b.DriverLocation != nil {
		loc := *b.DriverLocation
		c.DriverLocation = &loc
	}
	if b.Rejections != nil {
		c.Rejections = append([]Rejection(nil), b.Rejections...)
	}
	return &c
}
