package migrations

import (
	"github.com/flota85000/Meta-Bot/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createScheduleEntriesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_schedule_entries",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ScheduleEntryModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_schedule_due ON schedule_entries (status, date, time)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ScheduleEntryModel{})
		},
	}
}
