// Package storagetest opens migrated in-memory databases for store tests.
package storagetest

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"makerspace/internal/adapters/storage"
)

// Open returns a migrated in-memory SQLite database closed at test cleanup.
// A single connection is used since each :memory: connection is a separate database.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// InsertAccount adds a minimal account row so foreign keys resolve.
func InsertAccount(t testing.TB, db *sql.DB, id, userType string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO account (id, name, email, user_type, created_at) VALUES (?, ?, ?, ?, '2026-01-01T00:00:00Z')`,
		id, "User "+id, id+"@test.local", userType)
	if err != nil {
		t.Fatalf("insert account %s: %v", id, err)
	}
}
