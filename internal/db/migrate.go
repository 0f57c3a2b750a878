package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"userstream/internal/config"
	"userstream/internal/domain"
)

const migrationsDir = "migrations"

// EnsureSchema creates user_data if it does not exist. Drivers goose knows are
// migrated through goose; DuckDB has no goose dialect and gets the Up sections
// of the same migration files executed directly.
func EnsureSchema(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if db.DriverName() == config.DriverDuckDB {
		return applyUpSections(ctx, db)
	}
	return RunMigrations(ctx, db.DB, db.DriverName(), logger)
}

// RunMigrations executes all pending goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) error {
	goose.SetBaseFS(EmbedMigrations)
	goose.SetLogger(gooseLogger{logger: logger})

	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return domain.ErrQuery(err, "goose up")
	}

	return nil
}

func applyUpSections(ctx context.Context, db *sqlx.DB) error {
	files, err := fs.Glob(EmbedMigrations, migrationsDir+"/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		data, err := fs.ReadFile(EmbedMigrations, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, upSection(string(data))); err != nil {
			return domain.ErrQuery(err, "apply %s", name)
		}
	}
	return nil
}

// upSection returns the statements between the goose Up and Down annotations.
func upSection(migration string) string {
	_, up, ok := strings.Cut(migration, "-- +goose Up")
	if !ok {
		up = migration
	}
	up, _, _ = strings.Cut(up, "-- +goose Down")
	return strings.TrimSpace(up)
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
	os.Exit(1)
}
