package stream

import (
	"context"
	"iter"

	"userstream/internal/domain"
)

// FetchPage runs one bounded LIMIT/OFFSET query on its own connection and
// returns the rows. The connection is released before FetchPage returns.
// An empty page means the offset is past the end of the table; a failure is
// returned as an error, never as an empty page.
func (s *Streamer) FetchPage(ctx context.Context, pageSize, offset int) ([]domain.User, error) {
	req := domain.PageRequest{Size: pageSize, Offset: offset}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cur, err := s.open(ctx, selectPage, req.Size, req.Offset)
	if err != nil {
		return nil, err
	}
	defer cur.close()

	page, err := fetchMany(cur.rows, req.Size)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("page fetched", "page_size", req.Size, "offset", req.Offset, "rows", len(page))
	return page, nil
}

// Pages fetches successive pages starting at offset 0, advancing the offset by
// pageSize after every non-empty page, and stops at the first empty page. No
// connection is held between pulls, so abandoning the sequence leaks nothing.
func (s *Streamer) Pages(ctx context.Context, pageSize int) iter.Seq2[[]domain.User, error] {
	return func(yield func([]domain.User, error) bool) {
		req := domain.FirstPage(pageSize)
		if err := req.Validate(); err != nil {
			yield(nil, err)
			return
		}

		for ; ; req = req.Next() {
			page, err := s.FetchPage(ctx, req.Size, req.Offset)
			if err != nil {
				s.logger.Debug("pagination failed", "page_size", req.Size, "offset", req.Offset)
				yield(nil, err)
				return
			}
			if len(page) == 0 {
				return
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}
