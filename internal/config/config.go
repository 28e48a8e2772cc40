package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN       string `env:"DATABASE_DSN,required=true"`
	TelegramToken     string `env:"TELEGRAM_TOKEN,required=true"`
	RedisURL          string `env:"REDIS_URL"`
	Timezone          string `env:"TIMEZONE,default=Europe/Paris"`
	GenerationDays    int    `env:"GENERATION_DAYS,default=2"`
	RetentionDays     int    `env:"RETENTION_DAYS,default=2"`
	SendWindowMinutes int    `env:"SEND_WINDOW_MINUTES,default=0"`
	TelegramTimeout   int    `env:"TELEGRAM_TIMEOUT_SECONDS,default=10"`
	TelegramRetries   int    `env:"TELEGRAM_MAX_RETRIES,default=3"`
	RateLimitPerSec   int    `env:"RATE_LIMIT_PER_SEC,default=25"`
	PollRegistryTTL   int    `env:"POLL_REGISTRY_TTL_HOURS,default=48"`
	ExpandConcurrency int    `env:"EXPAND_CONCURRENCY,default=4"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.GenerationDays < 1 {
		return nil, fmt.Errorf("GENERATION_DAYS must be at least 1 (got %d)", cfg.GenerationDays)
	}
	if cfg.RetentionDays < 0 {
		return nil, fmt.Errorf("RETENTION_DAYS must not be negative (got %d)", cfg.RetentionDays)
	}
	if cfg.RetentionDays > cfg.GenerationDays {
		return nil, fmt.Errorf("RETENTION_DAYS (%d) must not exceed GENERATION_DAYS (%d)",
			cfg.RetentionDays, cfg.GenerationDays)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return &cfg, nil
}

// Location resolves the configured timezone. Load already validated
// it, so a lookup failure falls back to UTC rather than erroring.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SendWindow returns the delivery window, zero meaning no window.
func (c *Config) SendWindow() time.Duration {
	if c.SendWindowMinutes <= 0 {
		return 0
	}
	return time.Duration(c.SendWindowMinutes) * time.Minute
}
