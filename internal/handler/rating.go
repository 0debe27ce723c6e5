package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// RatingHandler handles HTTP requests for ratings.
type RatingHandler struct {
	ratingService *service.RatingService
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(ratingService *service.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// CreateRatingRequest is the HTTP request body for rating a trip partner.
type CreateRatingRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Score     int    `json:"score"`
	Comment   string `json:"comment,omitempty"`
}

// RatingResponse is the HTTP response for rating operations.
type RatingResponse struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	TargetRole string    `json:"target_role"`
	Score      int       `json:"score"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateRating handles POST /v1/ratings
func (h *RatingHandler) CreateRating(c *gin.Context) {
	var req CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	rating, err := h.ratingService.CreateRating(c.Request.Context(), service.CreateRatingRequest{
		BookingID:  req.BookingID,
		FromUserID: middleware.UserID(c),
		Score:      req.Score,
		Comment:    req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, RatingResponse{
		ID:         rating.ID,
		BookingID:  rating.BookingID,
		FromUserID: rating.FromUserID,
		ToUserID:   rating.ToUserID,
		TargetRole: string(rating.TargetRole),
		Score:      rating.Score,
		Comment:    rating.Comment,
		CreatedAt:  rating.CreatedAt,
	})
}
