package storage

import (
	"randomcall/backend/internal/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20261001_create_waiting_users_table",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.WaitingEntry{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("waiting_users")
			},
		},
		{
			ID: "20261001_create_active_calls_table",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.ActiveCallSession{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("active_calls")
			},
		},
	}
}

// Migrate applies all pending migrations.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	return m.Migrate()
}
