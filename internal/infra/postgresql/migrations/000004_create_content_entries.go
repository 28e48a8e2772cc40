package migrations

import (
	"github.com/flota85000/Meta-Bot/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createContentEntriesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_content_entries",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.ContentEntryModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ContentEntryModel{})
		},
	}
}
