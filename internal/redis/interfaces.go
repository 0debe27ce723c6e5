package redis

import (
	"context"
	"time"

	"rideshare/internal/settlement"
)

// LockStoreInterface defines the interface for settlement claims.
type LockStoreInterface interface {
	AcquireSettlementLock(ctx context.Context, paymentID string, ttl time.Duration) (bool, error)
	ReleaseSettlementLock(ctx context.Context, paymentID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface    = (*LockStore)(nil)
	_ settlement.Dispatcher = (*SettlementQueue)(nil)
)
