// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"userstream/internal/domain"
)

// Supported database/sql driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
	DriverDuckDB   = "duckdb"
)

// DefaultDatabaseName is the database the seeding collaborator creates.
const DefaultDatabaseName = "ALX_prodev"

// Database holds the connection parameters for the backing store.
type Database struct {
	Driver   string // mysql (default), pgx, sqlite3, duckdb
	Host     string // network drivers only (default "localhost")
	Port     int    // 0 selects the driver's default port
	User     string // default "root"
	Password string // default empty
	Name     string // database name (default "ALX_prodev")
	Path     string // file path for sqlite3/duckdb (default Name + extension)
}

// IsFileBacked reports whether the driver stores the database in a local file.
func (d Database) IsFileBacked() bool {
	return d.Driver == DriverSQLite || d.Driver == DriverDuckDB
}

// FilePath returns the database file for file-backed drivers.
func (d Database) FilePath() string {
	if d.Path != "" {
		return d.Path
	}
	switch d.Driver {
	case DriverDuckDB:
		return d.Name + ".duckdb"
	default:
		return d.Name + ".sqlite"
	}
}

// DSN builds the data source name for the configured driver.
func (d Database) DSN() (string, error) {
	switch d.Driver {
	case DriverMySQL:
		return d.mysqlConfig(d.Name).FormatDSN(), nil
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   d.address(5432),
			Path:   "/" + d.Name,
		}
		return u.String(), nil
	case DriverSQLite:
		return buildSQLiteDSN(d.FilePath()), nil
	case DriverDuckDB:
		return d.FilePath(), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", d.Driver)
	}
}

// ServerDSN builds a MySQL DSN without a database, used to create the database itself.
func (d Database) ServerDSN() (string, error) {
	if d.Driver != DriverMySQL {
		return "", fmt.Errorf("server DSN is only defined for %s, got %q", DriverMySQL, d.Driver)
	}
	return d.mysqlConfig("").FormatDSN(), nil
}

func (d Database) mysqlConfig(dbName string) *mysql.Config {
	c := mysql.NewConfig()
	c.User = d.User
	c.Passwd = d.Password
	c.Net = "tcp"
	c.Addr = d.address(3306)
	c.DBName = dbName
	return c
}

func (d Database) address(defaultPort int) string {
	port := d.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

// buildSQLiteDSN mirrors the hardened metastore DSN: WAL journal, busy timeout,
// NORMAL synchronous mode.
func buildSQLiteDSN(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_synchronous", "NORMAL")
	return path + "?" + params.Encode()
}

// Config holds the configuration for the streaming commands.
type Config struct {
	Database  Database
	LogLevel  string // log level: debug, info, warn, error (default "info")
	BatchSize int    // default batch size for the batch chunker (default 100)
	PageSize  int    // default page size for the offset pager (default 100)

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name to an slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Env var names read by LoadFromEnv.
const (
	EnvDriver    = "DB_DRIVER"
	EnvHost      = "DB_HOST"
	EnvPort      = "DB_PORT"
	EnvUser      = "DB_USER"
	EnvPassword  = "DB_PASS"
	EnvName      = "DB_NAME"
	EnvPath      = "DB_PATH"
	EnvLogLevel  = "LOG_LEVEL"
	EnvBatchSize = "BATCH_SIZE"
	EnvPageSize  = "PAGE_SIZE"
)

// LoadFromEnv loads configuration from environment variables and fills defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Database: Database{
			Driver:   strings.ToLower(os.Getenv(EnvDriver)),
			Host:     os.Getenv(EnvHost),
			User:     os.Getenv(EnvUser),
			Password: os.Getenv(EnvPassword),
			Name:     os.Getenv(EnvName),
			Path:     os.Getenv(EnvPath),
		},
		LogLevel: os.Getenv(EnvLogLevel),
	}

	var err error
	if cfg.Database.Port, err = parseIntEnv(EnvPort); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = parseIntEnv(EnvBatchSize); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = parseIntEnv(EnvPageSize); err != nil {
		return nil, err
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields and validates the result. It is safe to
// call again after flags or profiles have changed the configuration.
func (c *Config) ApplyDefaults() error {
	d := &c.Database
	if d.Driver == "" {
		d.Driver = DriverMySQL
	}
	if d.Host == "" {
		d.Host = "localhost"
	}
	if d.User == "" {
		d.User = "root"
	}
	if d.Name == "" {
		d.Name = DefaultDatabaseName
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.BatchSize == 0 {
		c.BatchSize = domain.DefaultPageSize
	}
	if c.PageSize == 0 {
		c.PageSize = domain.DefaultPageSize
	}

	switch d.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite, DriverDuckDB:
	default:
		return fmt.Errorf("unsupported %s %q: use mysql, pgx, sqlite3 or duckdb", EnvDriver, d.Driver)
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("%s out of range: %d", EnvPort, d.Port)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", EnvBatchSize, c.BatchSize)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", EnvPageSize, c.PageSize)
	}

	c.Warnings = c.Warnings[:0]
	if !d.IsFileBacked() && d.Password == "" {
		c.Warnings = append(c.Warnings, "DB_PASS not set, connecting without a password")
	}
	return nil
}

func parseIntEnv(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
