// Package settlement runs payment settlement off the request path.
package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"rideshare/internal/domain"
)

var (
	// ErrQueueFull is returned when the in-memory buffer cannot take more tasks.
	ErrQueueFull = errors.New("settlement queue full")

	// ErrClosed is returned when submitting to a stopped pool.
	ErrClosed = errors.New("settlement queue closed")
)

// Dispatcher accepts payments that should be settled asynchronously.
// Submission is best effort; a payment that is never settled stays in
// INITIATED and can be polled.
type Dispatcher interface {
	Submit(ctx context.Context, paymentID string) error
}

// Handler settles a single payment.
type Handler func(ctx context.Context, paymentID string) error

// Instrument wraps h with simulated gateway latency, a New Relic background
// transaction (when nrApp is non-nil) and result logging.
func Instrument(h Handler, delay time.Duration, nrApp *newrelic.Application, logger *logrus.Logger) Handler {
	return func(ctx context.Context, paymentID string) error {
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if nrApp != nil {
			txn := nrApp.StartTransaction("settlement/settle")
			txn.AddAttribute("payment_id", paymentID)
			defer txn.End()
			ctx = newrelic.NewContext(ctx, txn)
		}

		entry := logger.WithField("payment_id", paymentID)
		err := h(ctx, paymentID)
		switch {
		case err == nil:
			entry.Info("payment settled")
		case errors.Is(err, domain.ErrConflict):
			entry.WithError(err).Info("payment already advanced, skipping")
		default:
			entry.WithError(err).Error("settlement failed")
			if txn := newrelic.FromContext(ctx); txn != nil {
				txn.NoticeError(err)
			}
		}
		return err
	}
}
