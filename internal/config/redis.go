package config

import (
	"context"
	"fmt"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// InitRedis connects the client backing the cursor cache and the
// assignment lock. Callers may run without Redis (empty address); the
// wiring layer then falls back to in-process implementations.
func InitRedis(cfg *Config) (*redis.Client, *redislock.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return rdb, redislock.New(rdb), nil
}
