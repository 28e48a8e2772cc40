package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "host=localhost user=test password=test dbname=test port=5432 sslmode=disable")
	t.Setenv("TELEGRAM_TOKEN", "123456:test-token")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GenerationDays != 2 {
		t.Errorf("GenerationDays = %d, want 2", cfg.GenerationDays)
	}
	if cfg.RetentionDays != 2 {
		t.Errorf("RetentionDays = %d, want 2", cfg.RetentionDays)
	}
	if cfg.Timezone != "Europe/Paris" {
		t.Errorf("Timezone = %s, want Europe/Paris", cfg.Timezone)
	}
	if cfg.TelegramRetries != 3 {
		t.Errorf("TelegramRetries = %d, want 3", cfg.TelegramRetries)
	}
	if cfg.SendWindow() != 0 {
		t.Errorf("SendWindow() = %s, want 0", cfg.SendWindow())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENERATION_DAYS", "7")
	t.Setenv("RETENTION_DAYS", "3")
	t.Setenv("SEND_WINDOW_MINUTES", "30")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GenerationDays != 7 {
		t.Errorf("GenerationDays = %d, want 7", cfg.GenerationDays)
	}
	if cfg.RetentionDays != 3 {
		t.Errorf("RetentionDays = %d, want 3", cfg.RetentionDays)
	}
	if cfg.SendWindow() != 30*time.Minute {
		t.Errorf("SendWindow() = %s, want 30m", cfg.SendWindow())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_DSN", "host=localhost")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
}

func TestLoad_RetentionExceedsWindow(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENERATION_DAYS", "2")
	t.Setenv("RETENTION_DAYS", "5")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when retention exceeds the generation window, got nil")
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid timezone, got nil")
	}
}
