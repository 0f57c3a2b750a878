package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"userstream/internal/config"
	"userstream/internal/secret"
)

// isolate points HOME at a temp dir and clears the DB_* environment so that
// neither the developer's profiles nor their shell leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		config.EnvDriver, config.EnvHost, config.EnvPort, config.EnvUser, config.EnvPassword,
		config.EnvName, config.EnvPath, config.EnvLogLevel, config.EnvBatchSize, config.EnvPageSize,
		EnvOutput, secret.EnvKey,
	} {
		t.Setenv(key, "")
	}
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	return home
}

// runCLI executes a fresh root command and returns what it wrote to stdout
// and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// sqliteArgs returns the global flags selecting a SQLite file in dir.
func sqliteArgs(dir string) []string {
	return []string{"--driver", "sqlite3", "--path", filepath.Join(dir, "users.sqlite")}
}

// seededStore creates a SQLite store loaded with csv and returns its flags.
func seededStore(t *testing.T, csv string) []string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "users.csv")
	require.NoError(t, os.WriteFile(file, []byte(csv), 0o600))

	args := sqliteArgs(dir)
	_, _, err := runCLI(t, append(append([]string{}, args...), "seed", "--file", file)...)
	require.NoError(t, err)
	return args
}

func with(base []string, args ...string) []string {
	return append(append([]string{}, base...), args...)
}
