// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	dbutil "github.com/tablehouse/eventdesk/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Uint64

// Open returns a migrated in-memory SQLite database private to the test.
//
// The pool is limited to one connection so concurrent callers queue on the pool
// instead of failing with SQLITE_LOCKED on the shared cache.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:eventdesk_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", seq.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sqlite handle: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

// OpenFile returns a migrated file-backed database opened the way the server opens
// one: WAL journal, busy timeout, immediate transactions and a pool of several
// connections. Goroutines sharing it really run on separate connections.
func OpenFile(t testing.TB) *gorm.DB {
	t.Helper()
	conn, errOpen := dbutil.Open("file:" + filepath.Join(t.TempDir(), "eventdesk.db"))
	if errOpen != nil {
		t.Fatalf("open sqlite file: %v", errOpen)
	}
	conn.Logger = logger.Default.LogMode(logger.Silent)
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sqlite handle: %v", errDB)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}
