package repository

import (
	"context"
	"fmt"

	"github.com/flota85000/Meta-Bot/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleRepository is the keyed-table port over the persisted
// schedule. Upserts match on the idempotency-key columns and never
// touch the status of an existing row, so a sent record cannot be
// regressed to pending by regeneration.
type ScheduleRepository interface {
	GetAll(ctx context.Context) ([]domain.SendRecord, error)
	BatchUpsert(ctx context.Context, records []domain.SendRecord) error
	DeleteOlderThan(ctx context.Context, date string) (int64, error)
	MarkStatus(ctx context.Context, keys []domain.RecordKey, status domain.Status) error
}

type GormScheduleRepo struct {
	db *gorm.DB
}

var _ ScheduleRepository = (*GormScheduleRepo)(nil)

func NewGormScheduleRepo(db *gorm.DB) *GormScheduleRepo {
	return &GormScheduleRepo{db: db}
}

func (r *GormScheduleRepo) GetAll(ctx context.Context) ([]domain.SendRecord, error) {
	var models []ScheduleEntryModel
	if err := r.db.WithContext(ctx).
		Order("date asc, time asc").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}

	records := make([]domain.SendRecord, 0, len(models))
	for i := range models {
		records = append(records, *scheduleModelToDomain(&models[i]))
	}
	return records, nil
}

func (r *GormScheduleRepo) BatchUpsert(ctx context.Context, records []domain.SendRecord) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]ScheduleEntryModel, 0, len(records))
	for i := range records {
		models = append(models, *scheduleModelFromDomain(&records[i]))
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "subscriber"}, {Name: "program"}, {Name: "season"},
				{Name: "chat_id"}, {Name: "date"}, {Name: "time"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"organization", "content_type", "run_index",
				"message", "format", "media_url", "updated_at",
			}),
		}).
		CreateInBatches(&models, 200).Error
	if err != nil {
		return fmt.Errorf("failed to upsert schedule rows: %w", err)
	}
	return nil
}

func (r *GormScheduleRepo) DeleteOlderThan(ctx context.Context, date string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("date < ?", date).
		Delete(&ScheduleEntryModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge schedule rows: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GormScheduleRepo) MarkStatus(ctx context.Context, keys []domain.RecordKey, status domain.Status) error {
	if len(keys) == 0 {
		return nil
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, status)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			err := tx.Model(&ScheduleEntryModel{}).
				Where("subscriber = ? AND program = ? AND season = ? AND chat_id = ? AND date = ? AND time = ?",
					key.Subscriber, key.Program, key.Season, key.ChatID, key.Date, key.Time).
				Update("status", status).Error
			if err != nil {
				return fmt.Errorf("failed to mark %s as %s: %w", key, status, err)
			}
		}
		return nil
	})
}
