package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// RideHandler handles HTTP requests for a driver's posted rides.
type RideHandler struct {
	inventory      *service.InventoryService
	bookingService *service.BookingService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(inventory *service.InventoryService, bookingService *service.BookingService) *RideHandler {
	return &RideHandler{
		inventory:      inventory,
		bookingService: bookingService,
	}
}

// UpdatePriceRequest is the HTTP request body for changing the seat price.
type UpdatePriceRequest struct {
	PricePerSeat domain.Money `json:"price_per_seat"`
}

// AdjustSeatsRequest is the HTTP request body for changing capacity.
type AdjustSeatsRequest struct {
	TotalSeats int `json:"total_seats"`
}

// RideResponse is the HTTP response for ride operations.
type RideResponse struct {
	ID             string       `json:"id"`
	DriverID       string       `json:"driver_id"`
	Origin         string       `json:"origin"`
	Destination    string       `json:"destination"`
	DepartureTime  time.Time    `json:"departure_time"`
	TotalSeats     int          `json:"total_seats"`
	AvailableSeats int          `json:"available_seats"`
	PricePerSeat   domain.Money `json:"price_per_seat"`
	Status         string       `json:"status"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{
		ID:             r.ID,
		DriverID:       r.DriverID,
		Origin:         r.Origin,
		Destination:    r.Destination,
		DepartureTime:  r.DepartureTime,
		TotalSeats:     r.TotalSeats,
		AvailableSeats: r.AvailableSeats,
		PricePerSeat:   r.PricePerSeat,
		Status:         string(r.Status),
	}
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.inventory.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// UpdatePrice handles PATCH /v1/rides/:id/price
func (h *RideHandler) UpdatePrice(c *gin.Context) {
	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.inventory.UpdatePrice(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.PricePerSeat)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AdjustSeats handles PATCH /v1/rides/:id/seats
func (h *RideHandler) AdjustSeats(c *gin.Context) {
	var req AdjustSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.inventory.AdjustTotalSeats(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.TotalSeats)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	ride, err := h.bookingService.CompleteRide(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}
