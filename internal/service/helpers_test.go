package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/events"
	"ridehail/internal/maps"
	"ridehail/internal/repository/memory"
)

var (
	rider   = domain.Actor{ID: "rider-1", Role: domain.RoleRider}
	rider2  = domain.Actor{ID: "rider-2", Role: domain.RoleRider}
	driver  = domain.Actor{ID: "driver-1", Role: domain.RoleDriver}
	driver2 = domain.Actor{ID: "driver-2", Role: domain.RoleDriver}
	admin   = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	testAccount = domain.BankAccount{
		BankName:      "BCA",
		AccountNumber: "1234567890",
		AccountHolder: "Test Holder",
	}
)

// ──────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) byKey(key string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.RoutingKey() == key {
			out = append(out, e)
		}
	}
	return out
}

type fakeLockStore struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{held: make(map[string]bool)}
}

func (l *fakeLockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *fakeLockStore) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

type fakeScheduleCache struct {
	mu          sync.Mutex
	entries     map[[2]int]domain.PriceSchedule
	gets        int
	invalidated int
}

func newFakeScheduleCache() *fakeScheduleCache {
	return &fakeScheduleCache{entries: make(map[[2]int]domain.PriceSchedule)}
}

func (c *fakeScheduleCache) GetSchedule(ctx context.Context, month, year int) (*domain.PriceSchedule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	s, ok := c.entries[[2]int{month, year}]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *fakeScheduleCache) SetSchedule(ctx context.Context, month, year int, schedule *domain.PriceSchedule) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[[2]int{month, year}] = *schedule
	return nil
}

func (c *fakeScheduleCache) InvalidateSchedules(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[[2]int]domain.PriceSchedule)
	c.invalidated++
	return nil
}

type failingEstimator struct{}

func (failingEstimator) Estimate(ctx context.Context, from, to domain.Location) (maps.Route, error) {
	return maps.Route{}, errors.New("directions unavailable")
}

// ──────────────────────────────────────────────
// Environment
// ──────────────────────────────────────────────

type testEnv struct {
	store     *memory.Store
	locations *memory.LocationStore
	publisher *recordingPublisher
	pricing   *PricingService
	ledger    *LedgerService
	payments  *PaymentService
	bookings  *BookingService
	matching  *MatchingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	locations := memory.NewLocationStore()
	publisher := &recordingPublisher{}
	notifier := NewNotificationService()

	pricing := NewPricingService(store.PriceSchedules(), nil, publisher)
	ledger := NewLedgerService(store, nil, LedgerConfig{})
	payments := NewPaymentService(store, notifier)
	estimator := maps.FallbackEstimator{Primary: failingEstimator{}}

	return &testEnv{
		store:     store,
		locations: locations,
		publisher: publisher,
		pricing:   pricing,
		ledger:    ledger,
		payments:  payments,
		bookings:  NewBookingService(store, pricing, ledger, payments, locations, estimator, publisher, notifier),
		matching:  NewMatchingService(store.Bookings(), locations, 0),
	}
}

func cashRequest(distanceMeters int) CreateBookingRequest {
	return CreateBookingRequest{
		Pickup:         PlaceInput{Address: "Jl. Sudirman 1", Lat: -6.2088, Lng: 106.8456},
		Dropoff:        PlaceInput{Address: "Jl. Thamrin 10", Lat: -6.1944, Lng: 106.8229},
		PaymentMethod:  domain.PaymentMethodCash,
		DistanceMeters: distanceMeters,
	}
}

func transferRequest(distanceMeters int) CreateBookingRequest {
	req := cashRequest(distanceMeters)
	req.PaymentMethod = domain.PaymentMethodTransfer
	return req
}

func (e *testEnv) fund(t *testing.T, actor domain.Actor, amount int64, linked bool) {
	t.Helper()
	ctx := context.Background()
	if amount > 0 {
		if _, err := e.ledger.TopUp(ctx, actor, amount); err != nil {
			t.Fatalf("top up: %v", err)
		}
	}
	if linked {
		if _, err := e.ledger.LinkBankAccount(ctx, actor, testAccount); err != nil {
			t.Fatalf("link bank account: %v", err)
		}
	}
}

func (e *testEnv) balance(t *testing.T, userID string) int64 {
	t.Helper()
	w, err := e.store.Wallets().GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("get wallet of %s: %v", userID, err)
	}
	return w.Balance
}

// completedBooking runs a cash booking through the whole lifecycle.
func (e *testEnv) completedBooking(t *testing.T, r, d domain.Actor, distanceMeters int) *domain.Booking {
	t.Helper()
	ctx := context.Background()

	b, err := e.bookings.Create(ctx, r, cashRequest(distanceMeters))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.bookings.Accept(ctx, d, b.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.bookings.Start(ctx, d, b.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	b, err = e.bookings.Complete(ctx, d, b.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return b
}

// seedCompleted stores a completed booking whose settlement has not run.
func (e *testEnv) seedCompleted(t *testing.T, id string, fare int64) *domain.Booking {
	t.Helper()
	now := time.Now()
	b := &domain.Booking{
		ID:                id,
		RiderID:           "rider-" + id,
		DriverID:          driver.ID,
		FareAmount:        fare,
		DistanceMeters:    4000,
		State:             domain.BookingStateCompleted,
		PaymentMethod:     domain.PaymentMethodCash,
		PaymentStatus:     domain.BookingPaymentAwaitingConfirmation,
		SettlementPending: true,
		CreatedAt:         now,
		UpdatedAt:         now,
		CompletedAt:       now,
	}
	if err := e.store.Bookings().Create(context.Background(), b); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, got, err)
	}
}

func assertConflictAt(t *testing.T, err error, want domain.BookingState) {
	t.Helper()
	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}
	if conflict.Current != want {
		t.Errorf("expected current state %s, got %s", want, conflict.Current)
	}
}
