// Package migrations brings the task backend's schema up to date.
package migrations

import (
	"fmt"

	"github.com/taskmcp/taskmcp/internal/model"
	"gorm.io/gorm"
)

// Migrate creates or updates every table of the task backend.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Task{}); err != nil {
		return fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	return nil
}
