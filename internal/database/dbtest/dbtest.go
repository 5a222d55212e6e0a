// Package dbtest provides an in-memory SQLite database for package tests.
package dbtest

import (
	"testing"

	"rental-portal/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated in-memory database that is closed when the test ends
func New(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := database.NewSQLite(":memory:", &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if err := gdb.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	t.Cleanup(func() { _ = gdb.Close() })
	return gdb.DB()
}
