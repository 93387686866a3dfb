// Package testhelpers provides fixtures shared by the package tests.
package testhelpers

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/taskmcp/taskmcp/internal/db"
	"github.com/taskmcp/taskmcp/internal/migrations"
	"gorm.io/gorm"
)

// CreateTestDB opens a migrated, in-memory SQLite database private to the calling test.
func CreateTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// a named shared-cache database keeps every pooled connection on the same data
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := db.NewDBConnection(dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := migrations.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
