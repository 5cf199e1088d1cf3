package testfixtures

import (
	"path/filepath"
	"testing"

	"github.com/arnavshah/staff-scheduler-go/pkg/config"
	"github.com/arnavshah/staff-scheduler-go/pkg/database"
	"gorm.io/gorm"
)

// NewDB opens a migrated SQLite database in a temporary directory that is
// closed automatically when the test ends.
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	db, err := database.Open(config.Config{DatabaseDriver: "sqlite", DataPath: path})
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
