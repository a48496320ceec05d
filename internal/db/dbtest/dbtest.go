// Package dbtest opens the postgres database used by integration tests.
package dbtest

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/pdfqa/internal/config"
	"github.com/xxxsen/pdfqa/internal/db"
)

// Open connects to TEST_DB_DSN and applies migrations; the test is skipped
// when the variable is unset.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
