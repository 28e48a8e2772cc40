package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/flota85000/Meta-Bot/internal/domain"
	"gorm.io/gorm"
)

// AnswerRepository appends collected poll answers and merges the
// follow-up clarification comment into an existing row.
type AnswerRepository interface {
	Append(ctx context.Context, answer *domain.PollAnswer) error
	SetComment(ctx context.Context, id string, comment string) error
}

type GormAnswerRepo struct {
	db *gorm.DB
}

var _ AnswerRepository = (*GormAnswerRepo)(nil)

func NewGormAnswerRepo(db *gorm.DB) *GormAnswerRepo {
	return &GormAnswerRepo{db: db}
}

func (r *GormAnswerRepo) Append(ctx context.Context, answer *domain.PollAnswer) error {
	model := answerModelFromDomain(answer)
	if model == nil {
		return fmt.Errorf("%w: answer is required", domain.ErrValidation)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append poll answer: %w", err)
	}
	return nil
}

func (r *GormAnswerRepo) SetComment(ctx context.Context, id string, comment string) error {
	result := r.db.WithContext(ctx).
		Model(&PollAnswerModel{}).
		Where("id = ?", id).
		Update("comment", comment)
	if result.Error != nil {
		return fmt.Errorf("failed to set answer comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("poll answer %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// IsNotFound reports whether err wraps the missing-row sentinel from
// either this package or gorm.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
