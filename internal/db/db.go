// Package db opens the database of the reference task backend.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSQLiteFile is used when no DSN is configured.
const DefaultSQLiteFile = "tasks.db"

// NewDBConnection opens a connection to the database described by dsn.
// postgres:// and postgresql:// DSNs select Postgres, anything else is a SQLite file path
// (an optional sqlite:// prefix is stripped). An empty DSN uses DefaultSQLiteFile.
func NewDBConnection(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
	default:
		conn, err = gorm.Open(sqlite.Open(sqlitePath(dsn)), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// sqlitePath turns a SQLite DSN into the path the driver understands.
func sqlitePath(dsn string) string {
	if dsn == "" {
		return DefaultSQLiteFile
	}
	if p, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		// sqlite:///./tasks.db -> ./tasks.db
		if strings.HasPrefix(p, "/./") {
			return p[1:]
		}
		return p
	}
	return dsn
}
