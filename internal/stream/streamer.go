package stream

import (
	"context"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"userstream/internal/domain"
)

// Queries issued against the store. Placeholders are rebound per driver.
const (
	selectUsers = "SELECT * FROM " + domain.UserTable
	selectAges  = "SELECT age FROM " + domain.UserTable
	selectPage  = "SELECT * FROM " + domain.UserTable + " LIMIT ? OFFSET ?"
)

// maxPrealloc caps the capacity reserved up front for a batch or page.
const maxPrealloc = 1024

// Streamer produces lazy sequences over the user_data table.
type Streamer struct {
	connector Connector
	logger    *slog.Logger
}

// New creates a Streamer. A nil logger falls back to slog.Default().
func New(connector Connector, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{connector: connector, logger: logger}
}

// cursor is an open result set plus the connection it runs on.
type cursor struct {
	s    *Streamer
	conn Conn
	rows *sqlx.Rows
}

// open checks out a connection and runs query on it. On success the caller
// owns the cursor and must call close.
func (s *Streamer) open(ctx context.Context, query string, args ...interface{}) (*cursor, error) {
	conn, err := s.connector.Connect(ctx)
	if err != nil {
		return nil, domain.ErrConnection(err, "connect")
	}

	rows, err := conn.QueryxContext(ctx, conn.Rebind(query), args...)
	if err != nil {
		s.release("connection", conn)
		return nil, domain.ErrQuery(err, "query %q", query)
	}

	s.logger.Debug("cursor opened", "query", query, "args", args)
	return &cursor{s: s, conn: conn, rows: rows}, nil
}

func (c *cursor) close() {
	c.s.release("rows", c.rows)
	c.s.release("connection", c.conn)
}

// release closes a resource best-effort. Failures are logged, never returned.
func (s *Streamer) release(resource string, c io.Closer) {
	if err := c.Close(); err != nil {
		s.logger.Warn("release failed", "resource", resource, "error", domain.ErrResource(err, "close %s", resource))
	}
}

// fetchMany pulls up to n rows from the live cursor. A short result means the
// cursor is exhausted; on error the rows read so far are returned with it.
func fetchMany(rows *sqlx.Rows, n int) ([]domain.User, error) {
	batch := make([]domain.User, 0, min(n, maxPrealloc))
	for len(batch) < n && rows.Next() {
		var u domain.User
		if err := rows.StructScan(&u); err != nil {
			return batch, domain.ErrQuery(err, "scan %s row", domain.UserTable)
		}
		batch = append(batch, u)
	}
	if err := rows.Err(); err != nil {
		return batch, domain.ErrQuery(err, "iterate %s", domain.UserTable)
	}
	return batch, nil
}
