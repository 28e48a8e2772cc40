package migrations

import (
	"github.com/flota85000/Meta-Bot/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createPollAnswersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_poll_answers",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PollAnswerModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_poll_answers_respondent ON poll_answers (respondent_id, answered_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PollAnswerModel{})
		},
	}
}
