package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// SettlementQueueKey is the list holding payment IDs awaiting settlement.
	SettlementQueueKey = "queue:settlement"

	popTimeout      = 5 * time.Second
	settleLockTTL   = time.Minute
	consumerBackoff = time.Second
)

// SettlementQueue is a settlement dispatcher backed by a Redis list, so
// queued payments survive a restart and are shared by every instance.
type SettlementQueue struct {
	client *redis.Client
	locks  LockStoreInterface
	logger *logrus.Logger
	key    string

	popTimeout time.Duration
}

// NewSettlementQueue creates a new SettlementQueue.
func NewSettlementQueue(client *redis.Client, locks LockStoreInterface, logger *logrus.Logger) *SettlementQueue {
	return &SettlementQueue{
		client: client,
		locks:  locks,
		logger: logger,
		key:    SettlementQueueKey,

		popTimeout: popTimeout,
	}
}

// Submit pushes a payment onto the queue.
func (q *SettlementQueue) Submit(ctx context.Context, paymentID string) error {
	return q.client.LPush(ctx, q.key, paymentID).Err()
}

// Run starts workers consumers and blocks until ctx is cancelled and all
// of them have returned.
func (q *SettlementQueue) Run(ctx context.Context, workers int, handle func(ctx context.Context, paymentID string) error) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.consume(ctx, handle)
		}()
	}
	wg.Wait()
}

func (q *SettlementQueue) consume(ctx context.Context, handle func(ctx context.Context, paymentID string) error) {
	for ctx.Err() == nil {
		res, err := q.client.BRPop(ctx, q.popTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.logger.WithError(err).Warn("settlement queue pop failed")
			select {
			case <-ctx.Done():
			case <-time.After(consumerBackoff):
			}
			continue
		}

		// BRPOP replies with [key, value].
		paymentID := res[1]
		q.process(context.WithoutCancel(ctx), paymentID, handle)
	}
}

func (q *SettlementQueue) process(ctx context.Context, paymentID string, handle func(ctx context.Context, paymentID string) error) {
	entry := q.logger.WithField("payment_id", paymentID)

	ok, err := q.locks.AcquireSettlementLock(ctx, paymentID, settleLockTTL)
	if err != nil {
		// The pop already removed the payment, so put it back for a later attempt.
		entry.WithError(err).Warn("settlement claim failed, requeueing")
		if err := q.client.LPush(ctx, q.key, paymentID).Err(); err != nil {
			entry.WithError(err).Error("settlement requeue failed, payment stays INITIATED")
		}
		return
	}
	if !ok {
		entry.Debug("payment already claimed by another worker")
		return
	}
	defer func() {
		if err := q.locks.ReleaseSettlementLock(ctx, paymentID); err != nil {
			entry.WithError(err).Warn("settlement claim release failed")
		}
	}()

	_ = handle(ctx, paymentID)
}
