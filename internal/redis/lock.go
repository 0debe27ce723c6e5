package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles short-lived claims on payments in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

func settlementLockKey(paymentID string) string {
	return fmt.Sprintf("lock:settlement:%s", paymentID)
}

// AcquireSettlementLock claims a payment for settlement.
// Returns true if the claim was taken, false if another worker holds it.
func (s *LockStore) AcquireSettlementLock(ctx context.Context, paymentID string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, settlementLockKey(paymentID), "1", ttl).Result()
}

// ReleaseSettlementLock drops the claim on a payment.
func (s *LockStore) ReleaseSettlementLock(ctx context.Context, paymentID string) error {
	return s.client.Del(ctx, settlementLockKey(paymentID)).Err()
}
