package stream

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	internaldb "userstream/internal/db"
	"userstream/internal/domain"
)

// recordingConnector counts connection checkouts and releases. When failAt is
// positive, the failAt-th Connect call (1-based) fails with connectErr. A
// non-nil closeErr is returned by every Close after the real close.
type recordingConnector struct {
	inner      Connector
	calls      int
	connects   int
	closes     int
	failAt     int
	connectErr error
	closeErr   error
}

func (r *recordingConnector) Connect(ctx context.Context) (Conn, error) {
	r.calls++
	if r.failAt > 0 && r.calls >= r.failAt {
		return nil, r.connectErr
	}
	conn, err := r.inner.Connect(ctx)
	if err != nil {
		return nil, err
	}
	r.connects++
	return &recordingConn{Conn: conn, parent: r}, nil
}

// open reports how many checked-out connections have not been released.
func (r *recordingConnector) open() int { return r.connects - r.closes }

type recordingConn struct {
	Conn
	parent *recordingConnector
}

func (c *recordingConn) Close() error {
	c.parent.closes++
	if err := c.Conn.Close(); err != nil {
		return err
	}
	return c.parent.closeErr
}

type fixture struct {
	db       *sqlx.DB
	users    []domain.User
	conn     *recordingConnector
	streamer *Streamer
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	db := internaldb.OpenTestSQLite(t)
	users := internaldb.GenerateTestUsers(n)
	internaldb.InsertTestUsers(t, db, users...)

	rec := &recordingConnector{inner: DBConnector{DB: db}}
	return &fixture{
		db:       db,
		users:    users,
		conn:     rec,
		streamer: New(rec, slog.New(slog.DiscardHandler)),
	}
}

// requireReleased checks both the recorded closes and the pool's own view.
func (f *fixture) requireReleased(t *testing.T) {
	t.Helper()
	require.Zero(t, f.conn.open(), "connections checked out but not released")
	require.Zero(t, f.db.Stats().InUse, "pool still reports connections in use")
}

// captureLogs swaps the fixture's streamer for one that logs JSON to the
// returned buffer.
func (f *fixture) captureLogs() *bytes.Buffer {
	var buf bytes.Buffer
	f.streamer = New(f.conn, slog.New(slog.NewJSONHandler(&buf, nil)))
	return &buf
}

// corruptAge stores a non-numeric age for userID so that scanning its row fails.
func corruptAge(t *testing.T, db *sqlx.DB, userID string) {
	t.Helper()
	_, err := db.Exec(db.Rebind("UPDATE "+domain.UserTable+" SET age = 'old' WHERE user_id = ?"), userID)
	require.NoError(t, err)
}

func dropUserTable(t *testing.T, db *sqlx.DB) {
	t.Helper()
	_, err := db.Exec("DROP TABLE " + domain.UserTable)
	require.NoError(t, err)
}
