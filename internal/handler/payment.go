package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitiatePaymentRequest is the HTTP request body for paying for a booking.
type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Method    string `json:"method" binding:"required"` // WALLET, CASH, CARD_SIMULATED
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID             string       `json:"id"`
	BookingID      string       `json:"booking_id"`
	PayerID        string       `json:"payer_id"`
	DriverID       string       `json:"driver_id"`
	Amount         domain.Money `json:"amount"`
	PlatformFee    domain.Money `json:"platform_fee"`
	DriverEarnings domain.Money `json:"driver_earnings"`
	Method         string       `json:"method"`
	Status         string       `json:"status"`
	TransactionRef string       `json:"transaction_ref"`
	CreatedAt      time.Time    `json:"created_at"`
	SettledAt      *time.Time   `json:"settled_at,omitempty"`
	RefundedAt     *time.Time   `json:"refunded_at,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		BookingID:      p.BookingID,
		PayerID:        p.PayerID,
		DriverID:       p.DriverID,
		Amount:         p.Amount,
		PlatformFee:    p.PlatformFee,
		DriverEarnings: p.DriverEarnings,
		Method:         string(p.Method),
		Status:         string(p.Status),
		TransactionRef: p.TransactionRef,
		CreatedAt:      p.CreatedAt,
		SettledAt:      optionalTime(p.SettledAt),
		RefundedAt:     optionalTime(p.RefundedAt),
	}
}

// InitiatePayment handles POST /v1/payments
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	payment, err := h.paymentService.InitiatePayment(c.Request.Context(), service.InitiatePaymentRequest{
		BookingID: req.BookingID,
		PayerID:   middleware.UserID(c),
		Method:    domain.PaymentMethod(req.Method),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	code := http.StatusAccepted
	if payment.Status == domain.PaymentStatusSettled {
		code = http.StatusCreated
	}
	respondJSON(c, code, toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	userID := middleware.UserID(c)
	if payment.PayerID != userID && payment.DriverID != userID {
		respondError(c, domain.ErrNotParticipant)
		return
	}
	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// RefundPayment handles POST /v1/payments/:id/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	payment, err := h.paymentService.RefundPayment(c.Request.Context(), service.RefundPaymentRequest{
		PaymentID:    c.Param("id"),
		ActingUserID: middleware.UserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// WalletResponse is the HTTP response for wallet operations.
type WalletResponse struct {
	UserID  string       `json:"user_id"`
	Balance domain.Money `json:"balance"`
}

// TopUpRequest is the HTTP request body for crediting the caller's wallet.
type TopUpRequest struct {
	Amount domain.Money `json:"amount"`
}

// TopUpWallet handles POST /v1/wallet/topup
func (h *PaymentHandler) TopUpWallet(c *gin.Context) {
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.paymentService.TopUpWallet(c.Request.Context(), middleware.UserID(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, WalletResponse{UserID: user.ID, Balance: user.WalletBalance})
}

// GetWallet handles GET /v1/wallet
func (h *PaymentHandler) GetWallet(c *gin.Context) {
	user, err := h.paymentService.GetWallet(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, WalletResponse{UserID: user.ID, Balance: user.WalletBalance})
}
