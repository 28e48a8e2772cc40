package repository

import (
	"context"
	"fmt"

	"github.com/flota85000/Meta-Bot/internal/domain"
	"gorm.io/gorm"
)

// RuleEndDate carries one projected final diffusion date for a rule.
type RuleEndDate struct {
	Subscriber string
	Program    string
	Season     int
	EndDate    string
}

// RuleRepository reads the roster of recurrence rules. The roster is
// maintained elsewhere; the only write this core performs is filling
// the end-date column when it is still empty.
type RuleRepository interface {
	GetAll(ctx context.Context) ([]domain.RecurrenceRule, error)
	FillEndDates(ctx context.Context, updates []RuleEndDate) error
}

type GormRuleRepo struct {
	db *gorm.DB
}

var _ RuleRepository = (*GormRuleRepo)(nil)

func NewGormRuleRepo(db *gorm.DB) *GormRuleRepo {
	return &GormRuleRepo{db: db}
}

func (r *GormRuleRepo) GetAll(ctx context.Context) ([]domain.RecurrenceRule, error) {
	var models []RecurrenceRuleModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to read recurrence rules: %w", err)
	}

	rules := make([]domain.RecurrenceRule, 0, len(models))
	for i := range models {
		rule, err := ruleModelToDomain(&models[i])
		if err != nil || rule == nil {
			continue
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

func (r *GormRuleRepo) FillEndDates(ctx context.Context, updates []RuleEndDate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			err := tx.Model(&RecurrenceRuleModel{}).
				Where("subscriber = ? AND program = ? AND season = ? AND (end_date IS NULL OR end_date = '')",
					u.Subscriber, u.Program, u.Season).
				Update("end_date", u.EndDate).Error
			if err != nil {
				return fmt.Errorf("failed to fill end date for %s/%s: %w", u.Subscriber, u.Program, err)
			}
		}
		return nil
	})
}
