package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/service"
)

// DriverHandler handles HTTP requests made by drivers outside a booking.
type DriverHandler struct {
	matchingService *service.MatchingService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(matchingService *service.MatchingService) *DriverHandler {
	return &DriverHandler{matchingService: matchingService}
}

// VisibleBookingResponse is one entry of the driver's polling result.
type VisibleBookingResponse struct {
	BookingResponse
	Assigned           bool    `json:"assigned"`
	DistanceToPickupKm float64 `json:"distance_to_pickup_km,omitempty"`
}

// Bookings handles GET /v1/driver/bookings
func (h *DriverHandler) Bookings(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	visible, err := h.matchingService.VisibleBookings(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]VisibleBookingResponse, 0, len(visible))
	for _, v := range visible {
		resp = append(resp, VisibleBookingResponse{
			BookingResponse:    toBookingResponse(v.Booking),
			Assigned:           v.Assigned,
			DistanceToPickupKm: v.DistanceToPickupKm,
		})
	}
	respondJSON(c, http.StatusOK, gin.H{"bookings": resp, "count": len(resp)})
}

// UpdateLocation handles PUT /v1/driver/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req LocationRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.matchingService.UpdateDriverLocation(c.Request.Context(), actor.ID, req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "location updated"})
}

// GoOffline handles POST /v1/driver/offline
func (h *DriverHandler) GoOffline(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	if err := h.matchingService.GoOffline(c.Request.Context(), actor.ID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "offline"})
}

// Availability handles GET /v1/driver/availability
func (h *DriverHandler) Availability(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	available, err := h.matchingService.IsDriverAvailable(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"driver_id": actor.ID, "available": available})
}
