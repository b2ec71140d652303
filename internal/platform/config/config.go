// Package config loads runtime configuration from the environment, with a
// .env file picked up in development via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the api and worker binaries need at startup.
type Config struct {
	DatabaseURL string
	AppPort     string
	LogLevel    string

	AllocatorInterval  time.Duration
	AggregatorInterval time.Duration
	AggregatorBatch    int
	ClaimTTL           time.Duration
	RollupSchedule     string // cron expression, 5-field
}

// Load reads the .env file if present, then the process environment.
func Load() (*Config, error) {
	// Missing .env is fine in production; env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AppPort:            envOr("APP_PORT", "8080"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		AllocatorInterval:  envDuration("ALLOCATOR_INTERVAL", 15*time.Second),
		AggregatorInterval: envDuration("AGGREGATOR_INTERVAL", 30*time.Second),
		AggregatorBatch:    envInt("AGGREGATOR_BATCH", 100),
		ClaimTTL:           envDuration("STATS_CLAIM_TTL", 5*time.Minute),
		RollupSchedule:     envOr("ROLLUP_SCHEDULE", "10 2 * * *"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
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

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
