// Package db provides database connectivity helpers and schema support for the
// user_data store.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"userstream/internal/config"
	"userstream/internal/domain"
)

const pingTimeout = 5 * time.Second

// Open opens a *sqlx.DB pool for the configured driver and verifies the
// connection is usable. The caller must have registered the driver.
func Open(ctx context.Context, cfg config.Database) (*sqlx.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, domain.ErrConnection(err, "build %s dsn", cfg.Driver)
	}
	return openAndPing(ctx, cfg.Driver, dsn)
}

func openAndPing(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, domain.ErrConnection(err, "open %s", driver)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, domain.ErrConnection(err, "ping %s", driver)
	}

	return db, nil
}

// CreateDatabase makes sure the configured database exists before Open is
// called. Only MySQL needs work: file-backed drivers create their file on
// open, and PostgreSQL databases are expected to exist.
func CreateDatabase(ctx context.Context, cfg config.Database, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case config.DriverMySQL:
		dsn, err := cfg.ServerDSN()
		if err != nil {
			return err
		}
		server, err := openAndPing(ctx, cfg.Driver, dsn)
		if err != nil {
			return err
		}
		defer server.Close() //nolint:errcheck

		if _, err := server.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteMySQLIdent(cfg.Name)); err != nil {
			return domain.ErrQuery(err, "create database %s", cfg.Name)
		}
		logger.Info("database ready", "driver", cfg.Driver, "database", cfg.Name)
	case config.DriverPostgres:
		logger.Info("skipping database creation, postgres databases must already exist", "database", cfg.Name)
	default:
		logger.Debug("database file is created on open", "driver", cfg.Driver, "path", cfg.FilePath())
	}
	return nil
}

func quoteMySQLIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// CountUsers returns the number of rows in user_data.
func CountUsers(ctx context.Context, db *sqlx.DB) (int64, error) {
	var n int64
	if err := db.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", domain.UserTable)); err != nil {
		return 0, domain.ErrQuery(err, "count %s", domain.UserTable)
	}
	return n, nil
}
