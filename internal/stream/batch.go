package stream

import (
	"context"
	"iter"

	"userstream/internal/domain"
)

// Batches streams user_data in batches of up to batchSize rows, all pulled
// from one cursor that stays open until the sequence ends. Only the last
// batch may be short, and an empty batch is never yielded.
//
// A batchSize below one yields a ValidationError without contacting the store.
func (s *Streamer) Batches(ctx context.Context, batchSize int) iter.Seq2[[]domain.User, error] {
	return func(yield func([]domain.User, error) bool) {
		if batchSize < 1 {
			yield(nil, domain.ErrValidation("batch size must be at least 1, got %d", batchSize))
			return
		}

		cur, err := s.open(ctx, selectUsers)
		if err != nil {
			yield(nil, err)
			return
		}
		defer cur.close()

		for n := 0; ; n++ {
			batch, err := fetchMany(cur.rows, batchSize)
			if err != nil {
				if len(batch) > 0 && !yield(batch, nil) {
					return
				}
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				s.logger.Debug("batches exhausted", "batch_size", batchSize, "batches", n)
				return
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// FilterUsers flattens batches into the users that satisfy keep, one batch at
// a time. An error from batches is passed through and ends the sequence.
func FilterUsers(batches iter.Seq2[[]domain.User, error], keep func(domain.User) bool) iter.Seq2[domain.User, error] {
	return func(yield func(domain.User, error) bool) {
		for batch, err := range batches {
			if err != nil {
				yield(domain.User{}, err)
				return
			}
			for _, u := range batch {
				if keep(u) && !yield(u, nil) {
					return
				}
			}
		}
	}
}

// OlderThan keeps users strictly older than age.
func OlderThan(age int) func(domain.User) bool {
	return func(u domain.User) bool {
		return int(u.Age) > age
	}
}
