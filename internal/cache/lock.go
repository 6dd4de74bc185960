package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/ddmrp-planner/internal/config"
	"github.com/andresuchdata/ddmrp-planner/internal/domain"
)

const refreshLockKey = "lock:ddmrp:refresh"

// RefreshLocker holds a Redis lock for the duration of a refresh cycle so
// only one process recomputes at a time.
type RefreshLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

func NewRefreshLocker(client *redis.Client, cfg config.CacheConfig) *RefreshLocker {
	return &RefreshLocker{
		locker: redislock.New(client),
		ttl:    ttlOr(cfg.LockTTLSeconds, defaultLockTTL),
	}
}

// Obtain returns domain.ErrRefreshInProgress when another process holds the
// lock.
func (l *RefreshLocker) Obtain(ctx context.Context) (func(context.Context) error, error) {
	lock, err := l.locker.Obtain(ctx, refreshLockKey, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrRefreshInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("obtain refresh lock: %w", err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}
