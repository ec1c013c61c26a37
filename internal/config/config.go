// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load returns
// an error and the process exits.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all runtime configuration for the feed service.
type Config struct {
	Port        string `validate:"required,numeric"`
	DatabaseURL string `validate:"required"`
	RedisURL    string `validate:"required"`

	AdzunaAppID    string
	AdzunaAppKey   string
	AdzunaCountry  string `validate:"required,len=2,lowercase"` // e.g. "de", "gb", "fr"
	AdzunaBaseURL  string `validate:"required,url"`
	AdzunaMaxPages int    `validate:"gte=1,lte=20"`

	DigestIntervalHours int `validate:"gte=1"` // How often the digest cron fires
	DigestSize          int `validate:"gte=1"`
	DigestConcurrency   int `validate:"gte=1"`
	DefaultMaxDaysOld   int `validate:"gte=0"`

	CacheTTL time.Duration `validate:"gte=0"`

	// PipelineConfigPath points at an optional YAML file overriding the
	// pipeline defaults. Empty means defaults.
	PipelineConfigPath string
	LogLevel           string `validate:"oneof=debug info warn error"`
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg := &Config{
		Port:               envOr("FEED_PORT", "8083"),
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		AdzunaAppID:        os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:       os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry:      strings.ToLower(envOr("ADZUNA_COUNTRY", "de")),
		AdzunaBaseURL:      envOr("ADZUNA_BASE_URL", "https://api.adzuna.com/v1/api/jobs"),
		PipelineConfigPath: os.Getenv("PIPELINE_CONFIG"),
		LogLevel:           strings.ToLower(envOr("LOG_LEVEL", "info")),
	}

	var err error
	if cfg.AdzunaMaxPages, err = envInt("ADZUNA_MAX_PAGES", 3); err != nil {
		return nil, err
	}
	if cfg.DigestIntervalHours, err = envInt("DIGEST_INTERVAL_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.DigestSize, err = envInt("DIGEST_SIZE", 7); err != nil {
		return nil, err
	}
	if cfg.DigestConcurrency, err = envInt("DIGEST_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.DefaultMaxDaysOld, err = envInt("MAX_DAYS_OLD_DEFAULT", 14); err != nil {
		return nil, err
	}

	ttl := envOr("CACHE_TTL", "15m")
	if cfg.CacheTTL, err = time.ParseDuration(ttl); err != nil {
		return nil, fmt.Errorf("CACHE_TTL must be a duration, got %q", ttl)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, s)
	}
	return v, nil
}
