package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"ridehail/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBookingAccepted  NotificationType = "BOOKING_ACCEPTED"
	NotificationBookingRejected  NotificationType = "BOOKING_REJECTED"
	NotificationTripStarted      NotificationType = "TRIP_STARTED"
	NotificationTripCompleted    NotificationType = "TRIP_COMPLETED"
	NotificationPaymentConfirmed NotificationType = "PAYMENT_CONFIRMED"
	NotificationBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationReceiptReady     NotificationType = "RECEIPT_READY"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService tells riders and drivers about changes to their
// bookings. Clients also poll, so delivery is best effort.
type NotificationService struct{}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyBookingAccepted tells the rider a driver took the booking.
func (s *NotificationService) NotifyBookingAccepted(ctx context.Context, b *domain.Booking) error {
	return s.send(ctx, Notification{
		Type:        NotificationBookingAccepted,
		RecipientID: b.RiderID,
		Title:       "Driver Found",
		Message:     "A driver accepted your booking and is on the way",
		Data: map[string]interface{}{
			"booking_id": b.ID,
			"driver_id":  b.DriverID,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyBookingRejected tells the rider the driver dropped the booking and
// the search continues.
func (s *NotificationService) NotifyBookingRejected(ctx context.Context, b *domain.Booking, reason string) error {
	return s.send(ctx, Notification{
		Type:        NotificationBookingRejected,
		RecipientID: b.RiderID,
		Title:       "Looking For Another Driver",
		Message:     fmt.Sprintf("Your driver could not take the trip (%s). We are finding you another one.", reason),
		Data: map[string]interface{}{
			"booking_id": b.ID,
			"reason":     reason,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyTripStarted notifies the rider that the trip has started.
func (s *NotificationService) NotifyTripStarted(ctx context.Context, b *domain.Booking) error {
	return s.send(ctx, Notification{
		Type:        NotificationTripStarted,
		RecipientID: b.RiderID,
		Title:       "Trip Started",
		Message:     "Your trip has started. Enjoy your ride!",
		Data: map[string]interface{}{
			"booking_id": b.ID,
			"started_at": b.StartedAt,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyTripCompleted notifies the rider that the trip has ended.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, b *domain.Booking) error {
	message := fmt.Sprintf("You have arrived. Fare: %d", b.FareAmount)
	if b.PaymentMethod == domain.PaymentMethodCash {
		message += ", please pay your driver in cash"
	}
	return s.send(ctx, Notification{
		Type:        NotificationTripCompleted,
		RecipientID: b.RiderID,
		Title:       "Trip Completed",
		Message:     message,
		Data: map[string]interface{}{
			"booking_id":     b.ID,
			"fare":           b.FareAmount,
			"payment_method": b.PaymentMethod,
			"completed_at":   b.CompletedAt,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyPaymentConfirmed tells the rider the driver received the cash.
func (s *NotificationService) NotifyPaymentConfirmed(ctx context.Context, b *domain.Booking, payment *domain.Payment) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentConfirmed,
		RecipientID: b.RiderID,
		Title:       "Payment Confirmed",
		Message:     fmt.Sprintf("Your driver confirmed a cash payment of %d", payment.Amount),
		Data: map[string]interface{}{
			"booking_id": b.ID,
			"payment_id": payment.ID,
			"amount":     payment.Amount,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyBookingCancelled notifies the other party about a cancellation.
func (s *NotificationService) NotifyBookingCancelled(ctx context.Context, b *domain.Booking) error {
	var recipientID string
	var message string

	if b.CancelledBy == b.RiderID {
		recipientID = b.DriverID
		message = "The rider has cancelled the booking"
	} else {
		recipientID = b.RiderID
		message = "The driver has cancelled the booking"
	}

	if recipientID == "" {
		return nil // No one to notify
	}

	return s.send(ctx, Notification{
		Type:        NotificationBookingCancelled,
		RecipientID: recipientID,
		Title:       "Booking Cancelled",
		Message:     message,
		Data: map[string]interface{}{
			"booking_id":   b.ID,
			"cancelled_by": b.CancelledBy,
			"reason":       b.CancelReason,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyReceiptReady notifies the rider that the receipt is ready.
func (s *NotificationService) NotifyReceiptReady(ctx context.Context, receipt *domain.Receipt) error {
	return s.send(ctx, Notification{
		Type:        NotificationReceiptReady,
		RecipientID: receipt.RiderID,
		Title:       "Receipt Ready",
		Message:     fmt.Sprintf("Your receipt for %d is ready", receipt.TotalFare),
		Data: map[string]interface{}{
			"booking_id": receipt.BookingID,
			"total_fare": receipt.TotalFare,
		},
		CreatedAt: time.Now(),
	})
}

// send delivers a notification. Push delivery is not wired; notifications
// are logged and clients pick the change up on their next poll.
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Title, notification.Message)

	return nil
}
