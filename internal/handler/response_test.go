package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantState  string
		wantError  string
	}{
		{
			name:       "validation",
			err:        service.ErrWalletNotLinked,
			wantStatus: http.StatusBadRequest,
			wantCode:   "wallet_not_linked",
		},
		{
			name:       "state conflict carries current state",
			err:        fmt.Errorf("accept: %w", &service.StateConflictError{Err: service.ErrInvalidTransition, Current: domain.BookingStateAccepted}),
			wantStatus: http.StatusConflict,
			wantCode:   "invalid_state_transition",
			wantState:  "ACCEPTED",
		},
		{
			name:       "insufficient funds",
			err:        service.ErrInsufficientBalance,
			wantStatus: http.StatusPaymentRequired,
			wantCode:   "insufficient_balance",
		},
		{
			name:       "not found",
			err:        service.ErrBookingNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "booking_not_found",
		},
		{
			name:       "repository not found",
			err:        repository.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "forbidden",
			err:        service.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
		},
		{
			name:       "internal inconsistency",
			err:        service.ErrEarningAlreadyExists,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "earning_already_exists",
		},
		{
			name:       "unclassified error is hidden",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)

			if w.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, w.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tc.wantCode {
				t.Errorf("expected code %q, got %q", tc.wantCode, body.Code)
			}
			if body.CurrentState != tc.wantState {
				t.Errorf("expected current_state %q, got %q", tc.wantState, body.CurrentState)
			}
			if tc.wantError != "" && body.Error != tc.wantError {
				t.Errorf("expected error %q, got %q", tc.wantError, body.Error)
			}
		})
	}
}

func TestToBookingResponse(t *testing.T) {
	t.Parallel()

	b := &domain.Booking{
		ID:             "b1",
		RiderID:        "r1",
		State:          domain.BookingStateCreated,
		PaymentMethod:  domain.PaymentMethodCash,
		PaymentStatus:  domain.BookingPaymentUnpaid,
		FareAmount:     62000,
		DriverLocation: &domain.Location{Lat: 1, Lng: 2},
		Rejections:     []domain.Rejection{{DriverID: "d1", Reason: "flat tyre"}},
	}

	resp := toBookingResponse(b)
	if resp.DriverID != "" || resp.AcceptedAt != "" {
		t.Errorf("expected unset optional fields, got %+v", resp)
	}
	if resp.DriverLocation == nil || resp.DriverLocation.Lng != 2 {
		t.Errorf("unexpected driver location %+v", resp.DriverLocation)
	}
	if len(resp.Rejections) != 1 || resp.Rejections[0].Reason != "flat tyre" {
		t.Errorf("unexpected rejection history %+v", resp.Rejections)
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	jakarta := time.FixedZone("WIB", 7*60*60)
	testCases := []struct {
		name string
		in   time.Time
		want string
	}{
		{name: "zero time is omitted", in: time.Time{}, want: ""},
		{name: "utc", in: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), want: "2024-03-01T08:30:00Z"},
		{name: "keeps offset", in: time.Date(2024, 3, 1, 15, 30, 0, 0, jakarta), want: "2024-03-01T15:30:00+07:00"},
		{name: "drops sub-second precision", in: time.Date(2024, 3, 1, 8, 30, 0, 999, time.UTC), want: "2024-03-01T08:30:00Z"},
	}

	for _, tc := range testCases {
		if got := formatTime(tc.in); got != tc.want {
			t.Errorf("%s: formatTime = %q, want %q", tc.name, got, tc.want)
		}
	}
}
