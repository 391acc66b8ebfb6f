package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// lockMargin keeps the lock alive past one cycle so a slow run never overlaps the next tick.
const lockMargin = time.Hour

var (
	errLockStoreRequired = errors.New("redis client required for lock")
	errLockKeyRequired   = errors.New("lock key is required")
)

// Lock coordinates exclusive cron runs across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock holds a key for one maintenance cycle. Its value is "<holder>/<nonce>", and
// Release only deletes the key while that value is still ours.
type RedisLock struct {
	store  lockStore
	key    string
	lease  time.Duration
	holder string
	held   string
}

func NewRedisLock(store lockStore, key, holder string, interval time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errLockStoreRequired
	case key == "":
		return nil, errLockKeyRequired
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if holder == "" {
		holder = "cron"
	}
	return &RedisLock{store: store, key: key, lease: interval + lockMargin, holder: holder}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	claim := l.holder + "/" + uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, claim, l.lease)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.held = claim
	}
	return won, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	claim := l.held
	if claim == "" {
		return nil
	}
	l.held = ""

	owned, err := l.ownedBy(ctx, claim)
	if err != nil || !owned {
		return err
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

// ownedBy reports whether the key still carries claim. An expired key is not owned.
func (l *RedisLock) ownedBy(ctx context.Context, claim string) (bool, error) {
	current, err := l.store.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", l.key, err)
	}
	return current == claim, nil
}
