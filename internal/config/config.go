package config

import (
	"fmt"
	"os"
	"time"

	"collections-review-backend/internal/partition"
)

type Config struct {
	Port        string
	DatabaseDSN string
	RedisAddr   string
	Strategy    partition.Strategy
	RosterPath  string
	CursorTTL   time.Duration
	LockWait    time.Duration
	LockTTL     time.Duration
}

func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN environment variable is required")
	}

	strategy, err := partition.ParseStrategy(os.Getenv("PARTITION_STRATEGY"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        envOr("PORT", "8080"),
		DatabaseDSN: dsn,
		RedisAddr:   os.Getenv("REDIS_ADDRESS"),
		Strategy:    strategy,
		RosterPath:  envOr("ROSTER_PATH", "roster.json"),
		CursorTTL:   durationOr("CURSOR_TTL", 6*time.Hour),
		LockWait:    durationOr("LOCK_WAIT", 30*time.Second),
		LockTTL:     durationOr("LOCK_TTL", 2*time.Minute),
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
