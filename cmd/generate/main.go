package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flota85000/Meta-Bot/internal/config"
	"github.com/flota85000/Meta-Bot/internal/infra/postgresql"
	"github.com/flota85000/Meta-Bot/internal/infra/postgresql/migrations"
	"github.com/flota85000/Meta-Bot/internal/observability"
	"github.com/flota85000/Meta-Bot/internal/repository"
	"github.com/flota85000/Meta-Bot/internal/schedule"
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

	generator := schedule.NewGenerator(
		repository.NewGormRuleRepo(db),
		repository.NewGormScheduleRepo(db),
		repository.NewGormCatalogRepo(db),
		logger,
		schedule.Config{
			Location:      cfg.Location(),
			WindowDays:    cfg.GenerationDays,
			RetentionDays: cfg.RetentionDays,
			Concurrency:   cfg.ExpandConcurrency,
		},
	)

	if _, err := generator.Run(ctx, time.Now()); err != nil {
		logger.Fatal("generation pass failed", zap.Error(err))
	}
}
