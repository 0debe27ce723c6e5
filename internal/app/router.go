package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"rideshare/internal/handler"
	"rideshare/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	BookingHandler *handler.BookingHandler
	PaymentHandler *handler.PaymentHandler
	RatingHandler  *handler.RatingHandler
	RedisClient    *redis.Client // nil disables idempotency keys
	NewRelicApp    *newrelic.Application
	Logger         *logrus.Logger
	JWTSecret      string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}
	router.Use(middleware.RequestLogger(deps.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Every /v1 route acts on behalf of the authenticated user.
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTSecret))
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
	{
		rides := v1.Group("/rides")
		{
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.PATCH("/:id/price", deps.RideHandler.UpdatePrice)
			rides.PATCH("/:id/seats", deps.RideHandler.AdjustSeats)
			rides.POST("/:id/complete", deps.RideHandler.CompleteRide)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.CreateBooking)
			bookings.GET("/:id", deps.BookingHandler.GetBooking)
			bookings.POST("/:id/cancel", deps.BookingHandler.CancelBooking)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("", deps.PaymentHandler.InitiatePayment)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
			payments.POST("/:id/refund", deps.PaymentHandler.RefundPayment)
		}

		wallet := v1.Group("/wallet")
		{
			wallet.GET("", deps.PaymentHandler.GetWallet)
			wallet.POST("/topup", deps.PaymentHandler.TopUpWallet)
		}

		v1.POST("/ratings", deps.RatingHandler.CreateRating)
	}

	return router
}
