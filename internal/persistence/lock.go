package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when a lock is still held after the wait budget.
var ErrLockBusy = errors.New("lock busy")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker hands out short-lived SET NX locks.
type RedisLocker struct {
	client *redis.Client
	prefix string
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker builds a locker. Keys are namespaced with prefix.
func NewRedisLocker(r *Redis, prefix string) *RedisLocker {
	return &RedisLocker{client: r.Client, prefix: prefix, wait: 2 * time.Second, retry: 25 * time.Millisecond}
}

// Acquire blocks until key is free, ctx is done, or the wait budget runs out.
// The returned release func only deletes the key if this caller still owns it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	full := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", full, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{full}, token).Err()
	}, nil
}
