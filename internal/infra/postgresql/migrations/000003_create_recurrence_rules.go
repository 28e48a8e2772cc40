package migrations

import (
	"github.com/flota85000/Meta-Bot/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createRecurrenceRulesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_recurrence_rules",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.RecurrenceRuleModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.RecurrenceRuleModel{})
		},
	}
}
