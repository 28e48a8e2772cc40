package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flota85000/Meta-Bot/internal/collector"
	"github.com/flota85000/Meta-Bot/internal/config"
	"github.com/flota85000/Meta-Bot/internal/delivery"
	"github.com/flota85000/Meta-Bot/internal/gateway"
	"github.com/flota85000/Meta-Bot/internal/infra/postgresql"
	"github.com/flota85000/Meta-Bot/internal/infra/postgresql/migrations"
	infraredis "github.com/flota85000/Meta-Bot/internal/infra/redis"
	"github.com/flota85000/Meta-Bot/internal/observability"
	"github.com/flota85000/Meta-Bot/internal/ratelimit"
	"github.com/flota85000/Meta-Bot/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx := observability.WithRunID(context.Background(), uuid.NewString())
	logger = observability.WithContextLogger(logger, ctx)

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	var limiter ratelimit.RateLimiter
	if cfg.RedisURL != "" {
		rdb, err := infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		limiter, err = infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			logger.Fatal("rate limiter initialization failed", zap.Error(err))
		}
	} else {
		limiter = ratelimit.NewLocalRateLimiter(cfg.RateLimitPerSec)
	}

	client, err := gateway.NewTelegramClient(cfg.TelegramToken, limiter,
		gateway.WithTimeout(time.Duration(cfg.TelegramTimeout)*time.Second),
		gateway.WithMaxRetries(cfg.TelegramRetries),
	)
	if err != nil {
		logger.Fatal("telegram client initialization failed", zap.Error(err))
	}

	// A fresh process starts with an empty registry; answers to polls
	// dispatched by an earlier process are recorded without origin.
	registry := delivery.NewPollRegistry(time.Duration(cfg.PollRegistryTTL) * time.Hour)
	responses := collector.NewCollector(client, registry, repository.NewGormAnswerRepo(db), logger)

	if _, err := responses.CollectOnce(ctx); err != nil {
		logger.Fatal("collection pass failed", zap.Error(err))
	}
}
