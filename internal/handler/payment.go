package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// PaymentHandler handles HTTP requests for booking payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// PaymentResponse is the HTTP response for payment data.
type PaymentResponse struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Status    string `json:"status"`
	SettledAt string `json:"settled_at,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		BookingID: p.BookingID,
		Amount:    p.Amount,
		Method:    string(p.Method),
		Status:    string(p.Status),
		SettledAt: formatTime(p.SettledAt),
		CreatedAt: formatTime(p.CreatedAt),
	}
}

// Get handles GET /v1/bookings/:id/payment
func (h *PaymentHandler) Get(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.GetForBooking(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// ConfirmCash handles POST /v1/bookings/:id/payment/confirm
func (h *PaymentHandler) ConfirmCash(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	b, payment, err := h.paymentService.ConfirmCashPayment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"booking": toBookingResponse(b),
		"payment": toPaymentResponse(payment),
	})
}
