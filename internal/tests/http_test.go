package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"rideshare/internal/app"
	"rideshare/internal/handler"
	"rideshare/internal/logging"
	"rideshare/internal/middleware"
)

const jwtSecret = "router-test-secret"

func newRouter(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return app.NewRouter(app.RouterDeps{
		RideHandler:    handler.NewRideHandler(f.inventory, f.bookings),
		BookingHandler: handler.NewBookingHandler(f.bookings, f.inventory),
		PaymentHandler: handler.NewPaymentHandler(f.payments),
		RatingHandler:  handler.NewRatingHandler(f.ratings),
		Logger:         logging.Discard(),
		JWTSecret:      jwtSecret,
	})
}

func do(t *testing.T, r http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{UserID: userID}).SignedString([]byte(jwtSecret))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHTTP_RequiresToken(t *testing.T) {
	r := newRouter(t, newFixture(t))

	w := do(t, r, http.MethodGet, "/v1/rides/"+rideID, "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHTTP_BookAndPayWithWallet(t *testing.T) {
	f := newFixture(t)
	r := newRouter(t, f)

	w := do(t, r, http.MethodPost, "/v1/bookings", riderID, gin.H{"ride_id": rideID, "seats": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode[handler.BookingResponse](t, w)
	require.Equal(t, "CONFIRMED", booking.Status)
	require.Equal(t, "20.00", booking.CostForThisRider.String())

	w = do(t, r, http.MethodPost, "/v1/payments", riderID, gin.H{"booking_id": booking.ID, "method": "WALLET"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	payment := decode[handler.PaymentResponse](t, w)
	require.Equal(t, "INITIATED", payment.Status)
	require.Equal(t, "2.00", payment.PlatformFee.String())
	require.Equal(t, []string{payment.ID}, f.dispatcher.Submitted())

	w = do(t, r, http.MethodGet, "/v1/wallet", riderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "80.00", decode[handler.WalletResponse](t, w).Balance.String())

	w = do(t, r, http.MethodGet, "/v1/payments/"+payment.ID, driverID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/v1/payments/"+payment.ID, rider2ID, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestHTTP_ErrorStatuses(t *testing.T) {
	f := newFixture(t)
	f.addRide("ride-pricey", 3, "60.00")
	r := newRouter(t, f)

	w := do(t, r, http.MethodPost, "/v1/bookings", riderID, gin.H{"ride_id": rideID, "seats": 4})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, http.MethodPost, "/v1/bookings", riderID, gin.H{"ride_id": rideID, "seats": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/v1/bookings", riderID, gin.H{"ride_id": "nope", "seats": 1})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/v1/bookings", driverID, gin.H{"ride_id": rideID, "seats": 1})
	require.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/v1/bookings", riderID, gin.H{"ride_id": "ride-pricey", "seats": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	booking := decode[handler.BookingResponse](t, w)

	w = do(t, r, http.MethodPost, "/v1/payments", riderID, gin.H{"booking_id": booking.ID, "method": "WALLET"})
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	require.Equal(t, "100.00", f.balance(riderID))

	w = do(t, r, http.MethodPost, "/v1/payments", riderID, gin.H{"booking_id": booking.ID, "method": "BITCOIN"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTP_CashPaymentSettlesImmediately(t *testing.T) {
	f := newFixture(t)
	r := newRouter(t, f)

	w := do(t, r, http.MethodPost, "/v1/bookings", riderID, gin.H{"ride_id": rideID, "seats": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	booking := decode[handler.BookingResponse](t, w)

	w = do(t, r, http.MethodPost, "/v1/payments", riderID, gin.H{"booking_id": booking.ID, "method": "CASH"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, "SETTLED", decode[handler.PaymentResponse](t, w).Status)
	require.Equal(t, "9.00", f.balance(driverID))
	require.Empty(t, f.dispatcher.Submitted())
}

func TestHTTP_ReadsAreLimitedToParticipants(t *testing.T) {
	f := newFixture(t)
	r := newRouter(t, f)

	w := do(t, r, http.MethodPost, "/v1/bookings", riderID, gin.H{"ride_id": rideID, "seats": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	booking := decode[handler.BookingResponse](t, w)

	w = do(t, r, http.MethodGet, "/v1/bookings/"+booking.ID, riderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodGet, "/v1/bookings/"+booking.ID, driverID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodGet, "/v1/bookings/"+booking.ID, rider2ID, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, r, http.MethodGet, "/v1/bookings/missing", riderID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/v1/rides/"+rideID, rider2ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"available_seats":2`)
}
