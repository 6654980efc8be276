package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// PricingHandler handles HTTP requests for fares and price schedules.
type PricingHandler struct {
	pricingService *service.PricingService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(pricingService *service.PricingService) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

// ScheduleRequest is the HTTP request body for setting a month's tariff.
type ScheduleRequest struct {
	Month      int   `json:"month"`
	Year       int   `json:"year"`
	BasePrice  int64 `json:"base_price"`
	PricePerKm int64 `json:"price_per_km"`
	MinPrice   int64 `json:"min_price"`
	Inactive   bool  `json:"inactive,omitempty"`
}

// ScheduleResponse is the HTTP response for a price schedule.
type ScheduleResponse struct {
	ID         string `json:"id,omitempty"`
	Month      int    `json:"month,omitempty"`
	Year       int    `json:"year,omitempty"`
	BasePrice  int64  `json:"base_price"`
	PricePerKm int64  `json:"price_per_km"`
	MinPrice   int64  `json:"min_price"`
	IsActive   bool   `json:"is_active"`
}

func toScheduleResponse(s *domain.PriceSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:         s.ID,
		Month:      s.Month,
		Year:       s.Year,
		BasePrice:  s.BasePrice,
		PricePerKm: s.PricePerKm,
		MinPrice:   s.MinPrice,
		IsActive:   s.IsActive,
	}
}

// Quote handles GET /v1/pricing/quote?distance_meters=
func (h *PricingHandler) Quote(c *gin.Context) {
	distance, err := strconv.Atoi(c.Query("distance_meters"))
	if err != nil || distance < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "distance_meters must be a non-negative integer", Code: service.ErrInvalidRequest.Code})
		return
	}

	fare, err := h.pricingService.Quote(c.Request.Context(), distance)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"distance_meters": distance, "fare_amount": fare})
}

// Current handles GET /v1/pricing/schedule
func (h *PricingHandler) Current(c *gin.Context) {
	schedule, err := h.pricingService.ResolveSchedule(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toScheduleResponse(&schedule))
}

// List handles GET /v1/pricing/schedules
func (h *PricingHandler) List(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	schedules, err := h.pricingService.ListSchedules(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]ScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		resp = append(resp, toScheduleResponse(s))
	}
	respondJSON(c, http.StatusOK, gin.H{"schedules": resp, "count": len(resp)})
}

// Set handles PUT /v1/pricing/schedules
func (h *PricingHandler) Set(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req ScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := h.pricingService.SetSchedule(c.Request.Context(), actor, service.SetScheduleRequest{
		Month:      req.Month,
		Year:       req.Year,
		BasePrice:  req.BasePrice,
		PricePerKm: req.PricePerKm,
		MinPrice:   req.MinPrice,
		Inactive:   req.Inactive,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toScheduleResponse(schedule))
}
