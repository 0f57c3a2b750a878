package db

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"userstream/internal/config"
	"userstream/internal/domain"
)

// TestDatabase returns sqlite3 connection parameters for a file in t.TempDir().
func TestDatabase(t *testing.T) config.Database {
	t.Helper()
	return config.Database{
		Driver: config.DriverSQLite,
		Name:   "test",
		Path:   filepath.Join(t.TempDir(), "test.sqlite"),
	}
}

// OpenTestSQLite opens a SQLite store in t.TempDir(), creates user_data and
// registers cleanup. The sqlite3 driver must be registered by the test package.
func OpenTestSQLite(t *testing.T) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, TestDatabase(t))
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := EnsureSchema(ctx, db, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	return db
}

// InsertTestUsers inserts users verbatim, in order.
func InsertTestUsers(t *testing.T, db *sqlx.DB, users ...domain.User) {
	t.Helper()

	query := db.Rebind(fmt.Sprintf("INSERT INTO %s (user_id, name, email, age) VALUES (?, ?, ?, ?)", domain.UserTable))
	for _, u := range users {
		if _, err := db.Exec(query, u.UserID, u.Name, u.Email, int(u.Age)); err != nil {
			t.Fatalf("insert test user %s: %v", u.UserID, err)
		}
	}
}

// GenerateTestUsers builds n users with ids user-0001, user-0002, ... and
// ages cycling from 18 through 67.
func GenerateTestUsers(n int) []domain.User {
	users := make([]domain.User, n)
	for i := range users {
		users[i] = domain.User{
			UserID: fmt.Sprintf("user-%04d", i+1),
			Name:   fmt.Sprintf("User %d", i+1),
			Email:  fmt.Sprintf("user%d@example.com", i+1),
			Age:    domain.Age(18 + i%50),
		}
	}
	return users
}
