package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cursorKeyPrefix = "assign:cursor:"
	lastUpdateKey   = "records:last_update"
)

// RedisCache backs the round-robin cursors and the last-update signal.
// Cursor entries carry the configured TTL so stale round-robin state
// ages out on its own.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, cursorTTL time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: cursorTTL}
}

func (c *RedisCache) Get(ctx context.Context, branch string) (int, error) {
	val, err := c.rdb.Get(ctx, cursorKeyPrefix+branch).Result()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	idx, err := strconv.Atoi(val)
	if err != nil {
		return -1, nil
	}
	return idx, nil
}

func (c *RedisCache) Set(ctx context.Context, branch string, index int) error {
	return c.rdb.Set(ctx, cursorKeyPrefix+branch, strconv.Itoa(index), c.ttl).Err()
}

func (c *RedisCache) Touch(ctx context.Context, at time.Time) error {
	last, err := c.Last(ctx)
	if err != nil {
		return err
	}
	// Keep the signal monotonic even if clocks wobble between writers.
	if !at.After(last) {
		at = last.Add(time.Nanosecond)
	}
	return c.rdb.Set(ctx, lastUpdateKey, strconv.FormatInt(at.UnixNano(), 10), 0).Err()
}

func (c *RedisCache) Last(ctx context.Context) (time.Time, error) {
	val, err := c.rdb.Get(ctx, lastUpdateKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return time.Unix(0, nanos), nil
}
