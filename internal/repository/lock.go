package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

const assignmentLockKey = "assign:pass"

// RedisLocker implements the global assignment lock on redislock.
// Obtain retries for up to wait; a pass that cannot get the lock in
// time reports ok=false and is expected to skip, not fail.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	log    *logrus.Logger
}

func NewRedisLocker(client *redislock.Client, ttl, wait time.Duration, log *logrus.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait, log: log}
}

func (l *RedisLocker) Obtain(ctx context.Context) (func(), bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	lock, err := l.client.Obtain(waitCtx, assignmentLockKey, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(250 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	release := func() {
		if err := lock.Release(context.Background()); err != nil {
			l.log.WithError(err).Warn("failed to release assignment lock")
		}
	}
	return release, true, nil
}

// MemoryLocker is the single-process substitute used in tests and when
// Redis is not configured. Non-reentrant by construction: a second
// Obtain from the same goroutine blocks until the wait expires.
type MemoryLocker struct {
	sem  chan struct{}
	wait time.Duration
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{sem: make(chan struct{}, 1), wait: wait}
}

func (l *MemoryLocker) Obtain(ctx context.Context) (func(), bool, error) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, true, nil
	case <-timer.C:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, nil
	}
}
