package tester

import (
	"path/filepath"
	"testing"

	"github.com/sadoj/intel-backend/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a fresh sqlite database in the test's temp dir and runs the
// given migrations against it. The file is removed with the temp dir.
func NewDB(t testing.TB, migrations ...func(*gorm.DB) error) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "intel.db")
	gdb, err := gorm.Open(sqlite.Open(db.SQLiteDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	for _, migrate := range migrations {
		if err := migrate(gdb); err != nil {
			t.Fatalf("migrate test db: %v", err)
		}
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}
