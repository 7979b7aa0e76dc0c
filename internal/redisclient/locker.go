package redisclient

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const lockRetryInterval = 20 * time.Millisecond

// Locker serializes work per key across processes sharing one Redis
type Locker struct {
	client *Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewLocker creates a Locker. ttl bounds how long a crashed holder can
// block others; wait bounds how long Lock polls before giving up.
func NewLocker(client *Client, ttl, wait time.Duration) *Locker {
	return &Locker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		logger: util.GetLogger(),
	}
}

// Lock blocks until key is held or the wait elapses
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	start := time.Now()
	deadline := start.Add(l.wait)

	for {
		ok, err := l.client.AcquireLock(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			util.SessionLockWait.Observe(time.Since(start).Seconds())
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s: %w", key, models.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

func (l *Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	released, err := l.client.ReleaseLock(ctx, key, token)
	if err != nil {
		l.logger.Error("Failed to release lock", zap.String("key", key), zap.Error(err))
		return
	}
	if !released {
		l.logger.Warn("Lock expired before release", zap.String("key", key), zap.Duration("ttl", l.ttl))
	}
}
