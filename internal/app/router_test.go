package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/events"
	"ridehail/internal/handler"
	"ridehail/internal/maps"
	"ridehail/internal/middleware"
	"ridehail/internal/repository/memory"
	"ridehail/internal/service"
)

const testSecret = "router-test-secret"

var (
	testRider   = domain.Actor{ID: "rider-1", Role: domain.RoleRider}
	testDriver  = domain.Actor{ID: "driver-1", Role: domain.RoleDriver}
	testDriver2 = domain.Actor{ID: "driver-2", Role: domain.RoleDriver}
	testAdmin   = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter wires the full HTTP stack over in-memory storage.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memory.NewStore()
	stores := NewRedisStores(nil)
	publisher := events.NewLogPublisher()
	notifier := service.NewNotificationService()

	pricing := service.NewPricingService(store.PriceSchedules(), stores.Cache, publisher)
	ledger := service.NewLedgerService(store, stores.Lock, service.LedgerConfig{})
	payments := service.NewPaymentService(store, notifier)
	bookings := service.NewBookingService(store, pricing, ledger, payments, stores.Locations, maps.HaversineEstimator{}, publisher, notifier)
	matching := service.NewMatchingService(store.Bookings(), stores.Locations, 0)
	receipts := service.NewReceiptService(pricing, notifier)

	return NewRouter(RouterDeps{
		BookingHandler: handler.NewBookingHandler(bookings, receipts),
		DriverHandler:  handler.NewDriverHandler(matching),
		WalletHandler:  handler.NewWalletHandler(ledger),
		PaymentHandler: handler.NewPaymentHandler(payments),
		PricingHandler: handler.NewPricingHandler(pricing),
		JWTSecret:      testSecret,
	})
}

func token(t *testing.T, actor domain.Actor) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, actor, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func call(t *testing.T, r http.Handler, actor *domain.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, *actor))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, want, w.Body.String())
	}
}

func createBody(paymentMethod string) handler.CreateBookingRequest {
	return handler.CreateBookingRequest{
		Pickup:         handler.PlaceBody{Address: "Jl. Sudirman 1", Lat: -6.2088, Lng: 106.8456},
		Dropoff:        handler.PlaceBody{Address: "Jl. Thamrin 10", Lat: -6.1944, Lng: 106.8229},
		PaymentMethod:  paymentMethod,
		DistanceMeters: 5200,
	}
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := call(t, r, nil, http.MethodGet, "/health", nil)
	expectStatus(t, w, http.StatusOK)
}

func TestRouter_RequiresToken(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := call(t, r, nil, http.MethodGet, "/v1/bookings", nil)
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestRouter_RoleGates(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	tests := []struct {
		name   string
		actor  domain.Actor
		method string
		path   string
	}{
		{"driver creates booking", testDriver, http.MethodPost, "/v1/bookings"},
		{"rider polls driver feed", testRider, http.MethodGet, "/v1/driver/bookings"},
		{"driver reconciles wallet", testDriver, http.MethodGet, "/v1/wallets/rider-1/reconcile"},
		{"rider sets schedule", testRider, http.MethodPut, "/v1/pricing/schedules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := tt.actor
			w := call(t, r, &actor, tt.method, tt.path, createBody("CASH"))
			expectStatus(t, w, http.StatusForbidden)
		})
	}
}

func TestRouter_CashTripEndToEnd(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := call(t, r, &testRider, http.MethodPost, "/v1/bookings", createBody("CASH"))
	expectStatus(t, w, http.StatusCreated)
	created := decode[handler.BookingResponse](t, w)
	if created.State != "CREATED" || created.FareAmount != 62000 {
		t.Fatalf("unexpected booking: state=%s fare=%d", created.State, created.FareAmount)
	}
	base := "/v1/bookings/" + created.ID

	w = call(t, r, &testDriver, http.MethodPut, "/v1/driver/location", handler.LocationRequest{Lat: -6.21, Lng: 106.85})
	expectStatus(t, w, http.StatusOK)

	w = call(t, r, &testDriver, http.MethodGet, "/v1/driver/bookings", nil)
	expectStatus(t, w, http.StatusOK)
	feed := decode[struct {
		Bookings []handler.VisibleBookingResponse `json:"bookings"`
		Count    int                              `json:"count"`
	}](t, w)
	if feed.Count != 1 || feed.Bookings[0].ID != created.ID {
		t.Fatalf("expected the new booking in the driver feed, got %+v", feed)
	}

	w = call(t, r, &testDriver, http.MethodPost, base+"/accept", nil)
	expectStatus(t, w, http.StatusOK)

	w = call(t, r, &testDriver2, http.MethodPost, base+"/accept", nil)
	expectStatus(t, w, http.StatusConflict)
	if got := decode[handler.ErrorResponse](t, w); got.CurrentState != "ACCEPTED" {
		t.Errorf("current_state = %q, want ACCEPTED", got.CurrentState)
	}

	w = call(t, r, &testDriver, http.MethodPost, base+"/start", nil)
	expectStatus(t, w, http.StatusOK)

	w = call(t, r, &testDriver, http.MethodPost, base+"/complete", nil)
	expectStatus(t, w, http.StatusOK)
	completed := decode[handler.BookingResponse](t, w)
	if completed.State != "COMPLETED" || completed.PaymentStatus != "AWAITING_CONFIRMATION" {
		t.Fatalf("unexpected booking after complete: state=%s payment=%s", completed.State, completed.PaymentStatus)
	}

	w = call(t, r, &testDriver, http.MethodPost, base+"/payment/confirm", nil)
	expectStatus(t, w, http.StatusOK)

	w = call(t, r, &testRider, http.MethodGet, base, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[handler.BookingResponse](t, w); got.PaymentStatus != "PAID" {
		t.Errorf("payment_status = %q, want PAID", got.PaymentStatus)
	}

	w = call(t, r, &testRider, http.MethodGet, base+"/receipt", nil)
	expectStatus(t, w, http.StatusOK)

	w = call(t, r, &testDriver, http.MethodGet, "/v1/wallet", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[handler.WalletResponse](t, w); got.Balance != 49600 {
		t.Errorf("driver balance = %d, want 49600", got.Balance)
	}

	w = call(t, r, &testAdmin, http.MethodGet, "/v1/wallets/driver-1/reconcile", nil)
	expectStatus(t, w, http.StatusOK)
}

func TestRouter_TransferWithoutFunds(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := call(t, r, &testRider, http.MethodPut, "/v1/wallet/bank-account", handler.BankAccountRequest{
		BankName:      "BCA",
		AccountNumber: "1234567890",
		AccountHolder: "Rider One",
	})
	expectStatus(t, w, http.StatusOK)

	w = call(t, r, &testRider, http.MethodPost, "/v1/bookings", createBody("TRANSFER"))
	expectStatus(t, w, http.StatusPaymentRequired)

	w = call(t, r, &testRider, http.MethodPost, "/v1/wallet/topup", handler.AmountRequest{Amount: 62000})
	expectStatus(t, w, http.StatusOK)

	w = call(t, r, &testRider, http.MethodPost, "/v1/bookings", createBody("TRANSFER"))
	expectStatus(t, w, http.StatusCreated)
	if got := decode[handler.BookingResponse](t, w); got.PaymentStatus != "PAID" {
		t.Errorf("payment_status = %q, want PAID", got.PaymentStatus)
	}
}
