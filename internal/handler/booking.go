package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
	inventory      *service.InventoryService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, inventory *service.InventoryService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		inventory:      inventory,
	}
}

// CreateBookingRequest is the HTTP request body for booking seats. The
// rider is the authenticated caller.
type CreateBookingRequest struct {
	RideID string `json:"ride_id" binding:"required"`
	Seats  int    `json:"seats"`
}

// BookingResponse is the HTTP response for booking operations.
type BookingResponse struct {
	ID               string       `json:"id"`
	RideID           string       `json:"ride_id"`
	RiderID          string       `json:"rider_id"`
	SeatsBooked      int          `json:"seats_booked"`
	Status           string       `json:"status"`
	CostForThisRider domain.Money `json:"cost_for_this_rider"`
	CreatedAt        time.Time    `json:"created_at"`
	CancelledAt      *time.Time   `json:"cancelled_at,omitempty"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	resp := BookingResponse{
		ID:               b.ID,
		RideID:           b.RideID,
		RiderID:          b.RiderID,
		SeatsBooked:      b.SeatsBooked,
		Status:           string(b.Status),
		CostForThisRider: b.CostForThisRider,
		CreatedAt:        b.CreatedAt,
	}
	if !b.CancelledAt.IsZero() {
		cancelledAt := b.CancelledAt
		resp.CancelledAt = &cancelledAt
	}
	return resp
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		RideID:  req.RideID,
		RiderID: middleware.UserID(c),
		Seats:   req.Seats,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /v1/bookings/:id
// Only the rider and the ride's driver may read a booking.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	booking, err := h.bookingService.GetBooking(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if booking.RiderID != userID {
		ride, err := h.inventory.GetRide(ctx, booking.RideID)
		if err != nil {
			respondError(c, err)
			return
		}
		if ride.DriverID != userID {
			respondError(c, domain.ErrNotParticipant)
			return
		}
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// CancelBooking handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	booking, err := h.bookingService.CancelBooking(c.Request.Context(), service.CancelBookingRequest{
		BookingID:    c.Param("id"),
		ActingUserID: middleware.UserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}
