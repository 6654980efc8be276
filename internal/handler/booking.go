package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
	receiptService *service.ReceiptService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, receiptService *service.ReceiptService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		receiptService: receiptService,
	}
}

// PlaceBody is an addressed coordinate.
type PlaceBody struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	Pickup          PlaceBody `json:"pickup"`
	Dropoff         PlaceBody `json:"dropoff"`
	PaymentMethod   string    `json:"payment_method"`
	DistanceMeters  int       `json:"distance_meters,omitempty"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
}

// ReasonRequest is the HTTP request body for reject and cancel.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// LocationRequest is the HTTP request body for location updates.
type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RejectionResponse is one entry of a booking's rejection history.
type RejectionResponse struct {
	DriverID   string `json:"driver_id"`
	Reason     string `json:"reason"`
	RejectedAt string `json:"rejected_at"`
}

// BookingResponse is the HTTP response for booking data.
type BookingResponse struct {
	ID              string              `json:"id"`
	RiderID         string              `json:"rider_id"`
	DriverID        string              `json:"driver_id,omitempty"`
	Pickup          PlaceBody           `json:"pickup"`
	Dropoff         PlaceBody           `json:"dropoff"`
	DistanceMeters  int                 `json:"distance_meters"`
	DurationSeconds int                 `json:"duration_seconds"`
	FareAmount      int64               `json:"fare_amount"`
	State           string              `json:"state"`
	PaymentMethod   string              `json:"payment_method"`
	PaymentStatus   string              `json:"payment_status"`
	DriverLocation  *LocationRequest    `json:"driver_location,omitempty"`
	RiderHasRated   bool                `json:"rider_has_rated"`
	Rejections      []RejectionResponse `json:"rejection_history"`
	CancelledBy     string              `json:"cancelled_by,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	CreatedAt       string              `json:"created_at"`
	AcceptedAt      string              `json:"accepted_at,omitempty"`
	StartedAt       string              `json:"started_at,omitempty"`
	CompletedAt     string              `json:"completed_at,omitempty"`
	CancelledAt     string              `json:"cancelled_at,omitempty"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	resp := BookingResponse{
		ID:              b.ID,
		RiderID:         b.RiderID,
		DriverID:        b.DriverID,
		Pickup:          PlaceBody{Address: b.Pickup.Address, Lat: b.Pickup.Lat, Lng: b.Pickup.Lng},
		Dropoff:         PlaceBody{Address: b.Dropoff.Address, Lat: b.Dropoff.Lat, Lng: b.Dropoff.Lng},
		DistanceMeters:  b.DistanceMeters,
		DurationSeconds: b.DurationSeconds,
		FareAmount:      b.FareAmount,
		State:           string(b.State),
		PaymentMethod:   string(b.PaymentMethod),
		PaymentStatus:   string(b.PaymentStatus),
		RiderHasRated:   b.RiderHasRated,
		Rejections:      make([]RejectionResponse, 0, len(b.Rejections)),
		CancelledBy:     b.CancelledBy,
		CancelReason:    b.CancelReason,
		CreatedAt:       formatTime(b.CreatedAt),
		AcceptedAt:      formatTime(b.AcceptedAt),
		StartedAt:       formatTime(b.StartedAt),
		CompletedAt:     formatTime(b.CompletedAt),
		CancelledAt:     formatTime(b.CancelledAt),
	}
	if b.DriverLocation != nil {
		resp.DriverLocation = &LocationRequest{Lat: b.DriverLocation.Lat, Lng: b.DriverLocation.Lng}
	}
	for _, r := range b.Rejections {
		resp.Rejections = append(resp.Rejections, RejectionResponse{
			DriverID:   r.DriverID,
			Reason:     r.Reason,
			RejectedAt: formatTime(r.RejectedAt),
		})
	}
	return resp
}

// Create handles POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.bookingService.Create(c.Request.Context(), actor, service.CreateBookingRequest{
		Pickup:          service.PlaceInput{Address: req.Pickup.Address, Lat: req.Pickup.Lat, Lng: req.Pickup.Lng},
		Dropoff:         service.PlaceInput{Address: req.Dropoff.Address, Lat: req.Dropoff.Lat, Lng: req.Dropoff.Lng},
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		DistanceMeters:  req.DistanceMeters,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(b))
}

// Get handles GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	b, err := h.bookingService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// Current handles GET /v1/bookings/current
func (h *BookingHandler) Current(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	b, err := h.bookingService.CurrentForRider(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// List handles GET /v1/bookings?limit=
func (h *BookingHandler) List(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	bookings, err := h.bookingService.ListForRider(c.Request.Context(), actor, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}
	respondJSON(c, http.StatusOK, gin.H{"bookings": resp, "count": len(resp)})
}

// Accept handles POST /v1/bookings/:id/accept
func (h *BookingHandler) Accept(c *gin.Context) {
	h.transition(c, h.bookingService.Accept)
}

// Start handles POST /v1/bookings/:id/start
func (h *BookingHandler) Start(c *gin.Context) {
	h.transition(c, h.bookingService.Start)
}

// Complete handles POST /v1/bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	h.transition(c, h.bookingService.Complete)
}

// Rate handles POST /v1/bookings/:id/rate
func (h *BookingHandler) Rate(c *gin.Context) {
	h.transition(c, h.bookingService.MarkRiderRated)
}

// Reject handles POST /v1/bookings/:id/reject
func (h *BookingHandler) Reject(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.bookingService.Reject(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// Cancel handles POST /v1/bookings/:id/cancel. The body is optional.
func (h *BookingHandler) Cancel(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	b, err := h.bookingService.Cancel(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// UpdateLocation handles PUT /v1/bookings/:id/location
func (h *BookingHandler) UpdateLocation(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req LocationRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.bookingService.UpdateLocation(c.Request.Context(), actor, c.Param("id"), service.UpdateLocationRequest{
		Lat: req.Lat,
		Lng: req.Lng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// ReceiptResponse is the HTTP response for a trip receipt.
type ReceiptResponse struct {
	BookingID      string `json:"booking_id"`
	DistanceMeters int    `json:"distance_meters"`
	BaseFare       int64  `json:"base_fare"`
	DistanceFare   int64  `json:"distance_fare"`
	MinimumApplied bool   `json:"minimum_applied"`
	TotalFare      int64  `json:"total_fare"`
	PaymentMethod  string `json:"payment_method"`
	PaymentStatus  string `json:"payment_status"`
	CompletedAt    string `json:"completed_at"`
	Text           string `json:"text"`
}

// Receipt handles GET /v1/bookings/:id/receipt
func (h *BookingHandler) Receipt(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	b, err := h.bookingService.Get(ctx, actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	receipt, err := h.receiptService.GenerateReceipt(ctx, b)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ReceiptResponse{
		BookingID:      receipt.BookingID,
		DistanceMeters: receipt.DistanceMeters,
		BaseFare:       receipt.BaseFare,
		DistanceFare:   receipt.DistanceFare,
		MinimumApplied: receipt.MinimumApplied,
		TotalFare:      receipt.TotalFare,
		PaymentMethod:  string(receipt.PaymentMethod),
		PaymentStatus:  string(receipt.PaymentStatus),
		CompletedAt:    formatTime(receipt.CompletedAt),
		Text:           h.receiptService.FormatReceipt(receipt),
	})
}

type transitionFunc func(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error)

func (h *BookingHandler) transition(c *gin.Context, fn transitionFunc) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	b, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(b))
}
