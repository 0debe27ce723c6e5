package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
	"rideshare/internal/settlement"
)

// PaymentService moves a booking's frozen cost between the payer's wallet,
// the platform and the driver's wallet.
type PaymentService struct {
	store               repository.Store
	dispatcher          settlement.Dispatcher
	notificationService *NotificationService
	feeRate             decimal.Decimal
	logger              *logrus.Logger
	now                 func() time.Time
}

// NewPaymentService creates a new PaymentService. feeRate is the fraction
// of every payment kept by the platform.
func NewPaymentService(
	store repository.Store,
	dispatcher settlement.Dispatcher,
	notificationService *NotificationService,
	feeRate decimal.Decimal,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		store:               store,
		dispatcher:          dispatcher,
		notificationService: notificationService,
		feeRate:             feeRate,
		logger:              logger,
		now:                 time.Now,
	}
}

// InitiatePaymentRequest contains the parameters for paying for a booking.
type InitiatePaymentRequest struct {
	BookingID string
	PayerID   string
	Method    domain.PaymentMethod
}

// InitiatePayment records a payment for the booking's frozen cost. Wallet
// payments debit the payer in the same transaction. Cash payments settle
// immediately; the others are handed to the settlement dispatcher.
func (s *PaymentService) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*domain.Payment, error) {
	if req.BookingID == "" || req.PayerID == "" {
		return nil, domain.ErrInvalidID
	}
	method, err := domain.ParsePaymentMethod(string(req.Method))
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		booking, err := repos.Bookings.GetByIDForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if booking.RiderID != req.PayerID {
			return domain.ErrNotPayer
		}
		if booking.Status == domain.BookingStatusCancelled {
			return domain.ErrBookingCancelled
		}

		// Any payment that is not refunded blocks a new one, including
		// those still settling.
		existing, err := repos.Payments.ListByBooking(ctx, booking.ID)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if p.Status.IsOpen() {
				return fmt.Errorf("%w (payment %s is %s)", domain.ErrAlreadyPaid, p.ID, p.Status)
			}
		}

		ride, err := repos.Rides.GetByID(ctx, booking.RideID)
		if err != nil {
			return err
		}

		amount := booking.CostForThisRider
		fee := amount.MulRate(s.feeRate)
		now := s.now()

		if method == domain.PaymentMethodWallet {
			payer, err := repos.Users.GetByIDForUpdate(ctx, req.PayerID)
			if err != nil {
				return err
			}
			if err := payer.Debit(amount); err != nil {
				return fmt.Errorf("%w: balance %s, required %s", err, payer.WalletBalance, amount)
			}
			if err := repos.Users.UpdateWalletBalance(ctx, payer.ID, payer.WalletBalance); err != nil {
				return err
			}
		}

		payment = &domain.Payment{
			ID:             uuid.New().String(),
			BookingID:      booking.ID,
			PayerID:        req.PayerID,
			DriverID:       ride.DriverID,
			Amount:         amount,
			PlatformFee:    fee,
			DriverEarnings: amount.Sub(fee),
			Method:         method,
			Status:         domain.PaymentStatusInitiated,
			TransactionRef: "TXN-" + uuid.New().String(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}

		if method != domain.PaymentMethodCash {
			return nil
		}
		return s.completeSettlement(ctx, repos, payment)
	})
	if err != nil {
		return nil, err
	}

	entry := s.logger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"booking_id": payment.BookingID,
		"method":     payment.Method,
		"amount":     payment.Amount.String(),
	})

	if payment.Status == domain.PaymentStatusSettled {
		entry.Info("payment settled on initiation")
		s.notificationService.NotifyPaymentReceived(ctx, payment)
		return payment, nil
	}

	entry.Info("payment initiated")
	if err := s.dispatcher.Submit(ctx, payment.ID); err != nil {
		// The payment stays INITIATED and can be settled later.
		entry.WithError(err).Warn("failed to enqueue settlement")
	}
	return payment, nil
}

// Settle advances an INITIATED payment to SETTLED and credits the driver.
// PROCESSING is committed first so a concurrent or repeated call is
// rejected while the settlement is under way.
func (s *PaymentService) Settle(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, domain.ErrInvalidID
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		payment, err := repos.Payments.GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.PaymentStatusInitiated {
			return fmt.Errorf("%w (status %s)", domain.ErrPaymentNotInitiated, payment.Status)
		}
		if err := payment.Transition(domain.PaymentStatusProcessing, s.now()); err != nil {
			return err
		}
		return repos.Payments.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		p, err := repos.Payments.GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		payment = p
		return s.completeSettlement(ctx, repos, p)
	})
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", paymentID).Error("payment left in PROCESSING")
		return nil, err
	}

	s.notificationService.NotifyPaymentReceived(ctx, payment)
	return payment, nil
}

// SettleTask adapts Settle to a settlement.Handler.
func (s *PaymentService) SettleTask(ctx context.Context, paymentID string) error {
	_, err := s.Settle(ctx, paymentID)
	return err
}

// completeSettlement marks the payment SETTLED and credits the driver.
func (s *PaymentService) completeSettlement(ctx context.Context, repos repository.Repositories, payment *domain.Payment) error {
	if err := payment.Transition(domain.PaymentStatusSettled, s.now()); err != nil {
		return err
	}
	if err := repos.Payments.Update(ctx, payment); err != nil {
		return err
	}

	driver, err := repos.Users.GetByIDForUpdate(ctx, payment.DriverID)
	if err != nil {
		return err
	}
	driver.Credit(payment.DriverEarnings)
	return repos.Users.UpdateWalletBalance(ctx, driver.ID, driver.WalletBalance)
}

// RefundPaymentRequest contains the parameters for refunding a payment.
type RefundPaymentRequest struct {
	PaymentID    string
	ActingUserID string
}

// RefundPayment reverses a settled payment. The driver's earnings are
// always debited; only wallet payments return the amount to the payer's
// wallet. Fails with ErrInsufficientFunds if the driver has already spent
// the earnings.
func (s *PaymentService) RefundPayment(ctx context.Context, req RefundPaymentRequest) (*domain.Payment, error) {
	if req.PaymentID == "" || req.ActingUserID == "" {
		return nil, domain.ErrInvalidID
	}

	var payment *domain.Payment
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		payment, err = repos.Payments.GetByIDForUpdate(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		if req.ActingUserID != payment.PayerID && req.ActingUserID != payment.DriverID {
			return domain.ErrNotParticipant
		}
		if payment.Status != domain.PaymentStatusSettled {
			return fmt.Errorf("%w (status %s)", domain.ErrPaymentNotSettled, payment.Status)
		}
		if err := payment.Transition(domain.PaymentStatusRefunded, s.now()); err != nil {
			return err
		}
		if err := repos.Payments.Update(ctx, payment); err != nil {
			return err
		}

		users, err := lockUsers(ctx, repos.Users, payment.PayerID, payment.DriverID)
		if err != nil {
			return err
		}
		payer, driver := users[payment.PayerID], users[payment.DriverID]

		if err := driver.Debit(payment.DriverEarnings); err != nil {
			return fmt.Errorf("%w: driver balance %s, refund requires %s", err, driver.WalletBalance, payment.DriverEarnings)
		}
		if err := repos.Users.UpdateWalletBalance(ctx, driver.ID, driver.WalletBalance); err != nil {
			return err
		}

		if payment.Method != domain.PaymentMethodWallet {
			return nil
		}
		payer.Credit(payment.Amount)
		return repos.Users.UpdateWalletBalance(ctx, payer.ID, payer.WalletBalance)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":  payment.ID,
		"refunded_by": req.ActingUserID,
		"method":      payment.Method,
	}).Info("payment refunded")
	s.notificationService.NotifyPaymentRefunded(ctx, payment)

	return payment, nil
}

// TopUpWallet credits amount to the user's wallet without creating a payment.
func (s *PaymentService) TopUpWallet(ctx context.Context, userID string, amount domain.Money) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrInvalidID
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var user *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		user.Credit(amount)
		return repos.Users.UpdateWalletBalance(ctx, user.ID, user.WalletBalance)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount.String(),
	}).Info("wallet topped up")
	return user, nil
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.store.Repos().Payments.GetByID(ctx, paymentID)
}

// GetWallet retrieves the user holding the wallet.
func (s *PaymentService) GetWallet(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.store.Repos().Users.GetByID(ctx, userID)
}

// lockUsers locks the given users in ascending ID order so that two
// transactions touching the same pair of wallets cannot deadlock.
func lockUsers(ctx context.Context, users repository.UserRepository, ids ...string) (map[string]*domain.User, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	locked := make(map[string]*domain.User, len(sorted))
	for _, id := range sorted {
		if _, ok := locked[id]; ok {
			continue
		}
		u, err := users.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = u
	}
	return locked, nil
}
