package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// PaymentService handles the payment record attached to every booking.
type PaymentService struct {
	store    repository.Store
	notifier *NotificationService
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store repository.Store, notifier *NotificationService) *PaymentService {
	return &PaymentService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// createForBooking records the payment of a new booking. TRANSFER fares are
// already debited, so they start SETTLED; CASH starts PENDING.
func (s *PaymentService) createForBooking(ctx context.Context, repos repository.Repositories, b *domain.Booking) (*domain.Payment, error) {
	now := s.now()
	payment := &domain.Payment{
		ID:        uuid.New().String(),
		BookingID: b.ID,
		Amount:    b.FareAmount,
		Method:    b.PaymentMethod,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
	}
	if b.PaymentMethod == domain.PaymentMethodTransfer {
		payment.Status = domain.PaymentStatusSettled
		payment.SettledAt = now
	}

	if err := repos.Payments().Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// markRefunded flags the payment of a cancelled TRANSFER booking.
func (s *PaymentService) markRefunded(ctx context.Context, repos repository.Repositories, bookingID string) error {
	payment, err := repos.Payments().GetByBookingID(ctx, bookingID)
	if err != nil {
		return notFoundAs(err, ErrPaymentNotFound)
	}
	return repos.Payments().UpdateStatus(ctx, payment.ID, domain.PaymentStatusRefunded, time.Time{})
}

// ConfirmCashPayment is called by the assigned driver once the rider paid
// in cash. The booking becomes PAID and the payment SETTLED.
func (s *PaymentService) ConfirmCashPayment(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, *domain.Payment, error) {
	if err := requireRole(actor, domain.RoleDriver); err != nil {
		return nil, nil, err
	}

	var booking *domain.Booking
	var payment *domain.Payment
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		b, err := repos.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return notFoundAs(err, ErrBookingNotFound)
		}
		if b.DriverID != actor.ID {
			return ErrForbidden
		}
		if b.State != domain.BookingStateCompleted {
			return conflictAt(ErrInvalidTransition, b.State)
		}
		if b.PaymentMethod != domain.PaymentMethodCash {
			return ErrNotCashPayment
		}
		if b.PaymentStatus != domain.BookingPaymentAwaitingConfirmation {
			return conflictAt(ErrPaymentNotAwaitingConfirmation, b.State)
		}

		now := s.now()
		expected := b.Version
		b.PaymentStatus = domain.BookingPaymentPaid
		b.UpdatedAt = now
		if err := repos.Bookings().Update(ctx, b, expected); err != nil {
			return staleAsConflict(ctx, repos, b.ID, err)
		}

		payment, err = repos.Payments().GetByBookingID(ctx, b.ID)
		if err != nil {
			return notFoundAs(err, ErrPaymentNotFound)
		}
		if err := repos.Payments().UpdateStatus(ctx, payment.ID, domain.PaymentStatusSettled, now); err != nil {
			return err
		}
		payment.Status = domain.PaymentStatusSettled
		payment.SettledAt = now

		booking = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.NotifyPaymentConfirmed(ctx, booking, payment)
	}

	return booking, payment, nil
}

// GetForBooking returns the payment of a booking to one of its parties.
func (s *PaymentService) GetForBooking(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Payment, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFoundAs(err, ErrBookingNotFound)
	}
	if !isParty(actor, b) {
		return nil, ErrForbidden
	}

	payment, err := s.store.Payments().GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, notFoundAs(err, ErrPaymentNotFound)
	}
	return payment, nil
}
