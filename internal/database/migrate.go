package database

import (
	"fmt"
	"time"

	"github.com/hugh/c4p-portal/internal/database/models"
	"gorm.io/gorm"
)

// EnsureReceivedAt adds proposals.received_at to a pre-existing proposals
// table that lacks it and stamps existing rows with now. It reports whether
// the column was added. A missing table is left for AutoMigrate to create.
func EnsureReceivedAt(db *gorm.DB, now time.Time) (bool, error) {
	m := db.Migrator()

	if !m.HasTable(&models.Proposal{}) {
		return false, nil
	}
	if m.HasColumn(&models.Proposal{}, "ReceivedAt") {
		return false, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().AddColumn(&models.Proposal{}, "ReceivedAt"); err != nil {
			return fmt.Errorf("adding received_at: %w", err)
		}
		if err := tx.Model(&models.Proposal{}).
			Where("received_at IS NULL").
			UpdateColumn("received_at", now).Error; err != nil {
			return fmt.Errorf("backfilling received_at: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// TableNames lists the tables currently present.
func TableNames(db *gorm.DB) ([]string, error) {
	return db.Migrator().GetTables()
}
