package stream

import (
	"context"
	"iter"

	"github.com/jmoiron/sqlx"

	"userstream/internal/domain"
)

// Users streams every row of user_data, one per pull, in store order.
//
// Nothing is queried until the first pull. A failure ends the sequence with a
// single (zero, err) pair whose error matches domain.ErrDataSource.
func (s *Streamer) Users(ctx context.Context) iter.Seq2[domain.User, error] {
	return scanEach(ctx, s, selectUsers, func(rows *sqlx.Rows) (domain.User, error) {
		var u domain.User
		err := rows.StructScan(&u)
		return u, err
	})
}

// Ages streams only the age column, one positional value per row.
func (s *Streamer) Ages(ctx context.Context) iter.Seq2[int, error] {
	return scanEach(ctx, s, selectAges, func(rows *sqlx.Rows) (int, error) {
		var a domain.Age
		err := rows.Scan(&a)
		return int(a), err
	})
}

func scanEach[T any](ctx context.Context, s *Streamer, query string, scan func(*sqlx.Rows) (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		cur, err := s.open(ctx, query)
		if err != nil {
			yield(zero, err)
			return
		}
		defer cur.close()

		var n int
		for cur.rows.Next() {
			v, err := scan(cur.rows)
			if err != nil {
				yield(zero, domain.ErrQuery(err, "scan %s row", domain.UserTable))
				return
			}
			n++
			if !yield(v, nil) {
				s.logger.Debug("stream stopped by consumer", "query", query, "rows", n)
				return
			}
		}
		if err := cur.rows.Err(); err != nil {
			yield(zero, domain.ErrQuery(err, "iterate %s", domain.UserTable))
			return
		}
		s.logger.Debug("stream exhausted", "query", query, "rows", n)
	}
}
