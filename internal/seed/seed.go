// Package seed loads user rows from CSV into the user_data table.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"userstream/internal/config"
	"userstream/internal/domain"
)

// Result summarises one CSV load.
type Result struct {
	Read     int `json:"read"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Loader inserts CSV rows into user_data, ignoring rows whose key already exists.
type Loader struct {
	DB     *sqlx.DB
	NewID  func() string // defaults to domain.NewID
	Logger *slog.Logger
}

// InsertFile opens path and loads it with InsertCSV.
func (l *Loader) InsertFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	res, err := l.InsertCSV(ctx, f)
	if err != nil {
		return res, fmt.Errorf("load %s: %w", path, err)
	}
	return res, nil
}

// InsertCSV reads a CSV with a header row and positional name, email and age
// columns. Every row gets a fresh key and all rows are inserted in a single
// transaction; on error nothing is committed.
func (l *Loader) InsertCSV(ctx context.Context, r io.Reader) (Result, error) {
	var res Result

	query, err := insertIgnore(l.DB.DriverName())
	if err != nil {
		return res, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, fmt.Errorf("read header: %w", err)
	}

	tx, err := l.DB.BeginTxx(ctx, nil)
	if err != nil {
		return res, domain.ErrConnection(err, "begin seed transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(query))
	if err != nil {
		return res, domain.ErrQuery(err, "prepare insert")
	}
	defer stmt.Close()

	newID := l.NewID
	if newID == nil {
		newID = domain.NewID
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		u, err := parseRecord(record, line)
		if err != nil {
			return res, err
		}
		u.UserID = newID()
		res.Read++

		out, err := stmt.ExecContext(ctx, u.UserID, u.Name, u.Email, int(u.Age))
		if err != nil {
			return res, domain.ErrQuery(err, "insert csv line %d", line)
		}
		if n, err := out.RowsAffected(); err == nil {
			res.Inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return res, domain.ErrQuery(err, "commit seed transaction")
	}
	res.Skipped = res.Read - res.Inserted

	l.logger().Info("csv loaded", "read", res.Read, "inserted", res.Inserted, "skipped", res.Skipped)
	return res, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func parseRecord(record []string, line int) (domain.User, error) {
	if len(record) < 3 {
		return domain.User{}, domain.ErrValidation("csv line %d: want name,email,age, got %d fields", line, len(record))
	}
	ageText := strings.TrimSpace(record[2])
	age, err := strconv.ParseFloat(ageText, 64)
	if err != nil || age != float64(int(age)) || age < 0 || age > 999 {
		return domain.User{}, domain.ErrValidation("csv line %d: invalid age %q", line, ageText)
	}
	return domain.User{
		Name:  strings.TrimSpace(record[0]),
		Email: strings.TrimSpace(record[1]),
		Age:   domain.Age(age),
	}, nil
}

// insertIgnore returns an INSERT that leaves an existing row with the same
// user_id untouched.
func insertIgnore(driver string) (string, error) {
	const cols = " INTO " + domain.UserTable + " (user_id, name, email, age) VALUES (?, ?, ?, ?)"
	switch driver {
	case config.DriverMySQL:
		return "INSERT IGNORE" + cols, nil
	case config.DriverSQLite, config.DriverDuckDB:
		return "INSERT OR IGNORE" + cols, nil
	case config.DriverPostgres:
		return "INSERT" + cols + " ON CONFLICT (user_id) DO NOTHING", nil
	default:
		return "", fmt.Errorf("seed: unsupported driver %q", driver)
	}
}
