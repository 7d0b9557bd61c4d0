package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// Locker guards the critical sections that must be serialized across
// concurrent front-ends: slot booking per (doctor, date, time) and token
// assignment per (clinic, date).
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// SlotLockKey serializes booking attempts for one doctor-date-time slot.
func SlotLockKey(doctorID uuid.UUID, date time.Time, slot schedule.TimeOfDay) string {
	return fmt.Sprintf("lock:slot:%s:%s:%s", doctorID, schedule.DateString(date), slot)
}

// QueueLockKey serializes token assignment for one clinic-day.
func QueueLockKey(clinicID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("lock:queue:%s:%s", clinicID, schedule.DateString(date))
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker backed by a per-key Redis SetNX lease.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{client: client, ttl: ttl}
}

func (l *redisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
