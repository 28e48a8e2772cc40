package repository

import (
	"context"
	"fmt"

	"github.com/flota85000/Meta-Bot/internal/domain"
	"gorm.io/gorm"
)

// CatalogRepository reads the versioned content catalog.
type CatalogRepository interface {
	GetProgram(ctx context.Context, program string) ([]domain.ContentEntry, error)
	MaxDay(ctx context.Context, program string, season int) (int, error)
}

type GormCatalogRepo struct {
	db *gorm.DB
}

var _ CatalogRepository = (*GormCatalogRepo)(nil)

func NewGormCatalogRepo(db *gorm.DB) *GormCatalogRepo {
	return &GormCatalogRepo{db: db}
}

func (r *GormCatalogRepo) GetProgram(ctx context.Context, program string) ([]domain.ContentEntry, error) {
	var models []ContentEntryModel
	if err := r.db.WithContext(ctx).
		Where("program = ?", domain.NormalizeProgram(program)).
		Order("season asc, day asc, type_id asc").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to read catalog for program %s: %w", program, err)
	}

	entries := make([]domain.ContentEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *contentModelToDomain(&models[i]))
	}
	return entries, nil
}

func (r *GormCatalogRepo) MaxDay(ctx context.Context, program string, season int) (int, error) {
	var maxDay *int
	err := r.db.WithContext(ctx).
		Model(&ContentEntryModel{}).
		Select("MAX(day)").
		Where("program = ? AND season = ?", domain.NormalizeProgram(program), season).
		Scan(&maxDay).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog length for program %s: %w", program, err)
	}
	if maxDay == nil {
		return 0, nil
	}
	return *maxDay, nil
}
