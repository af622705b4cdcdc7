package lock

import (
	"context"
	"fmt"
	"time"

	"driveshare-settlement/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker hands out short-lived named locks. Acquire never blocks waiting for a holder:
// ok is false when someone else owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the key only if it still carries our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type redisLocker struct {
	client   *redis.Client
	newToken func() string
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client, newToken: func() string { return uuid.New().String() }}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := l.newToken()
	logger.ExternalServiceCall("Redis", "SetNX", "key", key, "ttl", ttl)
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	logger.ExternalServiceResult("Redis", "SetNX", err, "key", key, "acquired", ok)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release on a fresh context so a cancelled request still frees the key.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.client.Eval(rctx, releaseScript, []string{key}, token).Err(); err != nil && err != redis.Nil {
			logger.Warn("Failed to release lock", "key", key, "error", err)
		}
	}
	return release, true, nil
}

type localLocker struct{}

// NewLocalLocker returns a locker that always succeeds, for single-instance deployments
// where the database row locks are the only guard.
func NewLocalLocker() Locker {
	return localLocker{}
}

func (localLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

// BookingKey names the lock guarding settlement work for one booking.
func BookingKey(bookingID int32) string {
	return fmt.Sprintf("settlement:booking:%d", bookingID)
}
