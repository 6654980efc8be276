package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/events"
	"ridehail/internal/maps"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// BookingService drives the booking state machine. Every transition is a
// compare-and-set on the booking version, so concurrent actors resolve to
// one winner and the others get a StateConflictError.
type BookingService struct {
	store         repository.Store
	pricing       *PricingService
	ledger        *LedgerService
	payments      *PaymentService
	locationStore redis.LocationStoreInterface
	estimator     maps.Estimator
	publisher     events.Publisher
	notifier      *NotificationService
	now           func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	store repository.Store,
	pricing *PricingService,
	ledger *LedgerService,
	payments *PaymentService,
	locationStore redis.LocationStoreInterface,
	estimator maps.Estimator,
	publisher events.Publisher,
	notifier *NotificationService,
) *BookingService {
	if estimator == nil {
		estimator = maps.HaversineEstimator{}
	}
	return &BookingService{
		store:         store,
		pricing:       pricing,
		ledger:        ledger,
		payments:      payments,
		locationStore: locationStore,
		estimator:     estimator,
		publisher:     publisher,
		notifier:      notifier,
		now:           time.Now,
	}
}

// PlaceInput is an addressed coordinate in a request.
type PlaceInput struct {
	Address string  `json:"address" validate:"max=500"`
	Lat     float64 `json:"lat" validate:"min=-90,max=90"`
	Lng     float64 `json:"lng" validate:"min=-180,max=180"`
}

func (p PlaceInput) place() domain.Place {
	return domain.Place{Address: p.Address, Lat: p.Lat, Lng: p.Lng}
}

func (p PlaceInput) location() domain.Location {
	return domain.Location{Lat: p.Lat, Lng: p.Lng}
}

// CreateBookingRequest contains the parameters for requesting a ride.
// DistanceMeters may be left zero to let the service estimate the route.
type CreateBookingRequest struct {
	Pickup          PlaceInput           `json:"pickup"`
	Dropoff         PlaceInput           `json:"dropoff"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	DistanceMeters  int                  `json:"distance_meters" validate:"min=0,max=2000000"`
	DurationSeconds int                  `json:"duration_seconds" validate:"min=0,max=172800"`
}

// Create opens a booking for the rider. The fare is quoted once and never
// changes. TRANSFER bookings are paid from the rider's wallet in the same
// transaction that creates them.
func (s *BookingService) Create(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error) {
	if err := requireRole(actor, domain.RoleRider); err != nil {
		return nil, err
	}
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	active, err := s.store.Bookings().GetActiveByRider(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, conflictAt(ErrActiveBookingExists, active.State)
	}

	route, err := s.route(ctx, req)
	if err != nil {
		return nil, err
	}

	fare, tariff, err := s.pricing.QuoteTariff(ctx, route.DistanceMeters)
	if err != nil {
		return nil, err
	}

	now := s.now()
	b := &domain.Booking{
		ID:              uuid.New().String(),
		RiderID:         actor.ID,
		Pickup:          req.Pickup.place(),
		Dropoff:         req.Dropoff.place(),
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
		FareAmount:      fare,
		Tariff:          tariff,
		State:           domain.BookingStateCreated,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   domain.BookingPaymentUnpaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if b.PaymentMethod == domain.PaymentMethodTransfer {
		b.PaymentStatus = domain.BookingPaymentPaid
	}

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Bookings().Create(ctx, b); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrActiveBookingExists
			}
			return err
		}
		if b.PaymentMethod == domain.PaymentMethodTransfer {
			if err := s.ledger.preDebit(ctx, repos, b); err != nil {
				return err
			}
		}
		_, err := s.payments.createForBooking(ctx, repos, b)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[BOOKING] created booking=%s rider=%s fare=%d method=%s", b.ID, b.RiderID, b.FareAmount, b.PaymentMethod)

	return b, nil
}

func (s *BookingService) route(ctx context.Context, req CreateBookingRequest) (maps.Route, error) {
	if req.DistanceMeters > 0 {
		return maps.Route{DistanceMeters: req.DistanceMeters, DurationSeconds: req.DurationSeconds}, nil
	}
	return s.estimator.Estimate(ctx, req.Pickup.location(), req.Dropoff.location())
}

// Accept assigns the booking to the driver. Only one driver can win; a
// driver who rejected the booking or is already busy cannot accept it.
func (s *BookingService) Accept(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	if err := requireRole(actor, domain.RoleDriver); err != nil {
		return nil, err
	}

	busy, err := s.store.Bookings().GetActiveByDriver(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if busy != nil {
		if busy.ID == bookingID {
			return nil, conflictAt(ErrInvalidTransition, busy.State)
		}
		return nil, ErrDriverBusy
	}

	var driverLocation *domain.Location
	if s.locationStore != nil {
		driverLocation, err = s.locationStore.GetLocation(ctx, actor.ID)
		if err != nil {
			log.Printf("[BOOKING] failed to read location of driver %s: %v", actor.ID, err)
		}
	}

	b, err := s.mutate(ctx, s.store, bookingID, func(b *domain.Booking) error {
		if b.State != domain.BookingStateCreated {
			return conflictAt(ErrInvalidTransition, b.State)
		}
		if b.HasRejected(actor.ID) {
			return ErrDriverRejected
		}
		b.DriverID = actor.ID
		b.DriverLocation = driverLocation
		b.State = domain.BookingStateAccepted
		b.AcceptedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.NotifyBookingAccepted(ctx, b)
	}

	return b, nil
}

// Start begins the trip.
func (s *BookingService) Start(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, s.store, bookingID, func(b *domain.Booking) error {
		if !isAssignedDriver(actor, b) {
			return ErrForbidden
		}
		if b.State != domain.BookingStateAccepted {
			return conflictAt(ErrInvalidTransition, b.State)
		}
		b.State = domain.BookingStateInProgress
		b.StartedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.NotifyTripStarted(ctx, b)
	}

	return b, nil
}

// UpdateLocationRequest contains the parameters for a live location update.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// UpdateLocation records the assigned driver's live position on the booking
// and in the driver location store.
func (s *BookingService) UpdateLocation(ctx context.Context, actor domain.Actor, bookingID string, req UpdateLocationRequest) (*domain.Booking, error) {
	if !isValidLatitude(req.Lat) || !isValidLongitude(req.Lng) {
		return nil, ErrInvalidLocation
	}

	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFoundAs(err, ErrBookingNotFound)
	}
	if !isAssignedDriver(actor, b) {
		return nil, ErrForbidden
	}
	if b.State.IsTerminal() {
		return nil, conflictAt(ErrInvalidTransition, b.State)
	}

	loc := domain.Location{Lat: req.Lat, Lng: req.Lng}
	if err := s.store.Bookings().UpdateDriverLocation(ctx, bookingID, actor.ID, loc); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The driver was unassigned in the meantime.
			return nil, ErrForbidden
		}
		return nil, err
	}
	b.DriverLocation = &loc

	if s.locationStore != nil {
		if err := s.locationStore.UpdateLocation(ctx, actor.ID, req.Lat, req.Lng); err != nil {
			log.Printf("[BOOKING] failed to store location of driver %s: %v", actor.ID, err)
		}
	}

	return b, nil
}

// Complete finishes the trip and settles the driver's earning. If settlement
// fails the booking keeps its pending-settlement marker and the sweeper
// retries it later; the completion itself stands.
func (s *BookingService) Complete(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, s.store, bookingID, func(b *domain.Booking) error {
		if !isAssignedDriver(actor, b) {
			return ErrForbidden
		}
		if b.State != domain.BookingStateAccepted && b.State != domain.BookingStateInProgress {
			return conflictAt(ErrInvalidTransition, b.State)
		}
		b.State = domain.BookingStateCompleted
		b.CompletedAt = s.now()
		b.SettlementPending = true
		if b.PaymentMethod == domain.PaymentMethodCash {
			b.PaymentStatus = domain.BookingPaymentAwaitingConfirmation
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.Settle(ctx, b.ID); err != nil {
		log.Printf("[SETTLEMENT] booking %s left pending (%s): %v", b.ID, KindOf(err), err)
	} else if fresh, err := s.store.Bookings().GetByID(ctx, b.ID); err == nil {
		b = fresh
	}

	event := events.TripCompleted{
		BookingID:   b.ID,
		RiderID:     b.RiderID,
		DriverID:    b.DriverID,
		FareAmount:  b.FareAmount,
		CompletedAt: b.CompletedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("[BOOKING] failed to publish %s: %v", event.RoutingKey(), err)
	}

	if s.notifier != nil {
		_ = s.notifier.NotifyTripCompleted(ctx, b)
	}

	return b, nil
}

// Reject hands an accepted booking back to the pool. The driver will not
// see it again.
func (s *BookingService) Reject(ctx context.Context, actor domain.Actor, bookingID, reason string) (*domain.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectReasonRequired
	}

	b, err := s.mutate(ctx, s.store, bookingID, func(b *domain.Booking) error {
		if !isAssignedDriver(actor, b) {
			return ErrForbidden
		}
		if b.State != domain.BookingStateAccepted {
			return conflictAt(ErrInvalidTransition, b.State)
		}
		b.Rejections = append(b.Rejections, domain.Rejection{
			DriverID:   actor.ID,
			Reason:     reason,
			RejectedAt: s.now(),
		})
		b.DriverID = ""
		b.DriverLocation = nil
		b.AcceptedAt = time.Time{}
		b.State = domain.BookingStateCreated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.NotifyBookingRejected(ctx, b, reason)
	}

	return b, nil
}

// Cancel ends a booking that has not finished yet. A pre-paid TRANSFER fare
// is refunded to the rider in the same transaction.
func (s *BookingService) Cancel(ctx context.Context, actor domain.Actor, bookingID, reason string) (*domain.Booking, error) {
	var b *domain.Booking
	var refunded int64

	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		b, err = s.mutate(ctx, repos, bookingID, func(b *domain.Booking) error {
			if !(actor.Role == domain.RoleRider && b.RiderID == actor.ID) && !isAssignedDriver(actor, b) {
				return ErrForbidden
			}
			if b.State.IsTerminal() {
				return conflictAt(ErrInvalidTransition, b.State)
			}
			if b.PaymentMethod == domain.PaymentMethodTransfer && b.PaymentStatus == domain.BookingPaymentPaid {
				if err := s.ledger.refund(ctx, repos, b); err != nil {
					return err
				}
				refunded = b.FareAmount
				b.PaymentStatus = domain.BookingPaymentUnpaid
			}
			b.State = domain.BookingStateCancelled
			b.CancelledAt = s.now()
			b.CancelledBy = actor.ID
			b.CancelReason = strings.TrimSpace(reason)
			return nil
		})
		if err != nil {
			return err
		}
		if refunded > 0 {
			return s.payments.markRefunded(ctx, repos, b.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.BookingCancelled{
		BookingID:   b.ID,
		RiderID:     b.RiderID,
		DriverID:    b.DriverID,
		CancelledBy: b.CancelledBy,
		Reason:      b.CancelReason,
		Refunded:    refunded,
		CancelledAt: b.CancelledAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("[BOOKING] failed to publish %s: %v", event.RoutingKey(), err)
	}

	if s.notifier != nil {
		_ = s.notifier.NotifyBookingCancelled(ctx, b)
	}

	return b, nil
}

// Get returns a booking to its rider, its driver or an admin. Open bookings
// are visible to every driver.
func (s *BookingService) Get(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFoundAs(err, ErrBookingNotFound)
	}
	if isParty(actor, b) {
		return b, nil
	}
	if actor.Role == domain.RoleDriver && b.State == domain.BookingStateCreated && !b.HasRejected(actor.ID) {
		return b, nil
	}
	return nil, ErrForbidden
}

// ListForRider returns the rider's booking history, newest first.
func (s *BookingService) ListForRider(ctx context.Context, actor domain.Actor, limit int) ([]*domain.Booking, error) {
	if err := requireRole(actor, domain.RoleRider); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.store.Bookings().ListByRider(ctx, actor.ID, limit)
}

// CurrentForRider returns the rider's active booking.
func (s *BookingService) CurrentForRider(ctx context.Context, actor domain.Actor) (*domain.Booking, error) {
	if err := requireRole(actor, domain.RoleRider); err != nil {
		return nil, err
	}
	b, err := s.store.Bookings().GetActiveByRider(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// MarkRiderRated records that the rider rated a completed trip.
func (s *BookingService) MarkRiderRated(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	return s.mutate(ctx, s.store, bookingID, func(b *domain.Booking) error {
		if actor.Role != domain.RoleRider || b.RiderID != actor.ID {
			return ErrForbidden
		}
		if b.State != domain.BookingStateCompleted {
			return conflictAt(ErrInvalidTransition, b.State)
		}
		if b.RiderHasRated {
			return ErrAlreadyRated
		}
		b.RiderHasRated = true
		return nil
	})
}

// mutate loads a booking, lets fn check guards and apply the change, and
// writes it back only if nobody else changed it in between.
func (s *BookingService) mutate(ctx context.Context, repos repository.Repositories, bookingID string, fn func(b *domain.Booking) error) (*domain.Booking, error) {
	b, err := repos.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFoundAs(err, ErrBookingNotFound)
	}

	expected := b.Version
	if err := fn(b); err != nil {
		return nil, err
	}
	b.UpdatedAt = s.now()

	if err := repos.Bookings().Update(ctx, b, expected); err != nil {
		return nil, staleAsConflict(ctx, repos, bookingID, err)
	}
	return b, nil
}

// staleAsConflict reports a lost compare-and-set with the state the winner
// left the booking in.
func staleAsConflict(ctx context.Context, repos repository.Repositories, bookingID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrStaleVersion):
		current, getErr := repos.Bookings().GetByID(ctx, bookingID)
		if getErr != nil {
			return getErr
		}
		return conflictAt(ErrInvalidTransition, current.State)
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDriverBusy
	}
	return err
}

func isAssignedDriver(actor domain.Actor, b *domain.Booking) bool {
	return actor.Role == domain.RoleDriver && b.DriverID != "" && b.DriverID == actor.ID
}

func isParty(actor domain.Actor, b *domain.Booking) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleRider:
		return b.RiderID == actor.ID
	case domain.RoleDriver:
		return b.DriverID != "" && b.DriverID == actor.ID
	}
	return false
}
