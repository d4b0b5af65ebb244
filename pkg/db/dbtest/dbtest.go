// Package dbtest opens isolated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"

	"github.com/angelmondragon/stockledger/pkg/db"
)

// Open returns a migrated client backed by a private in-memory database that
// is closed when the test ends.
func Open(t *testing.T) *db.Client {
	t.Helper()

	dsn := "file:stockledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := db.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	client := db.NewFromConn(conn)
	if err := client.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}
