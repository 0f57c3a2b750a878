// Package stream reads user_data lazily: row by row over a live cursor, in
// fixed-size batches from one cursor, or page by page with a fresh connection
// per page. Every sequence is pull-driven and releases its cursor and
// connection on every exit path, including a consumer breaking out early.
package stream

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Conn is one store connection, held for the lifetime of a single scan.
// *sqlx.Conn satisfies it.
type Conn interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	Rebind(query string) string
	Close() error
}

// Connector hands out connections to the backing store.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// DBConnector checks dedicated connections out of a *sqlx.DB pool. Closing the
// Conn returns it to the pool.
type DBConnector struct {
	DB *sqlx.DB
}

// Connect implements Connector.
func (c DBConnector) Connect(ctx context.Context) (Conn, error) {
	conn, err := c.DB.Connx(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
