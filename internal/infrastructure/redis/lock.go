package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/nadiyatra/registration/internal/domain/errors"
	"github.com/redis/go-redis/v9"
)

// Lua script for safe lock release (only owner can release)
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// OrderLocker serializes reconcile attempts per order identifier. Two
// concurrent callbacks for the same order (a duplicate IPN racing a
// user-driven redirect) would otherwise both pass the not-yet-SUCCESS
// check before either writes.
type OrderLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
}

// NewOrderLocker creates an OrderLocker with the given lock TTL and
// acquisition retry policy.
func NewOrderLocker(client *redis.Client, ttl time.Duration, retries int, retryDelay time.Duration) *OrderLocker {
	if retries <= 0 {
		retries = 1
	}
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}
	return &OrderLocker{
		client:     client,
		ttl:        ttl,
		retries:    retries,
		retryDelay: retryDelay,
	}
}

// WithLock runs fn while holding the lock for key. Returns
// ErrLockAcquisitionFailed when the lock cannot be acquired within the
// retry budget.
func (l *OrderLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lockKey := fmt.Sprintf("lock:order:%s", key)
	token := uuid.New().String()

	acquired := false
	for i := 0; i < l.retries; i++ {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", lockKey, err)
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
	if !acquired {
		return domainErrors.ErrLockAcquisitionFailed
	}

	defer func() {
		// Only the owner may release; an expired lock is left alone.
		_, _ = releaseLockScript.Run(context.WithoutCancel(ctx), l.client, []string{lockKey}, token).Result()
	}()

	return fn(ctx)
}
