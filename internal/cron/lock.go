package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLeaseTTL = 5 * time.Minute

// Locker hands out the cluster-wide lease that lets one cron worker run a
// cycle. TryLock returns a nil Lease when another worker holds it.
type Locker interface {
	TryLock(ctx context.Context) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLocker stores the lease under a single key with a TTL so a crashed
// worker cannot block the others for longer than ttl.
type RedisLocker struct {
	store leaseStore
	key   string
	ttl   time.Duration
}

// NewRedisLocker builds a locker on key. A non-positive ttl means five minutes.
func NewRedisLocker(store leaseStore, key string, ttl time.Duration) (*RedisLocker, error) {
	switch {
	case store == nil:
		return nil, errors.New("cron lock store required")
	case key == "":
		return nil, errors.New("cron lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLocker{store: store, key: key, ttl: ttl}, nil
}

// TryLock claims the key with a fresh token.
func (l *RedisLocker) TryLock(ctx context.Context) (Lease, error) {
	token := uuid.NewString()
	claimed, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", l.key, err)
	}
	if !claimed {
		return nil, nil
	}
	return &redisLease{store: l.store, key: l.key, token: token}, nil
}

type redisLease struct {
	store leaseStore
	key   string
	token string
}

// Release deletes the key only while it still carries this lease's token.
// An expired lease that another worker re-claimed is left alone.
func (l *redisLease) Release(ctx context.Context) error {
	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("read %s: %w", l.key, err)
	case current != l.token:
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("drop %s: %w", l.key, err)
	}
	return nil
}
