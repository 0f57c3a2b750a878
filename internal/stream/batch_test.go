package stream

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userstream/internal/domain"
)

func TestBatches_ConcatenationAndSizes(t *testing.T) {
	for _, n := range []int{0, 1, 7, 10} {
		for _, size := range []int{1, 3, 5, 10, 25} {
			t.Run(fmt.Sprintf("rows=%d/batch=%d", n, size), func(t *testing.T) {
				f := newFixture(t, n)

				var sizes []int
				var all []domain.User
				for batch, err := range f.streamer.Batches(context.Background(), size) {
					require.NoError(t, err)
					sizes = append(sizes, len(batch))
					all = append(all, batch...)
				}

				wantBatches := (n + size - 1) / size
				require.Len(t, sizes, wantBatches)
				if n > 0 {
					last := n % size
					if last == 0 {
						last = size
					}
					assert.Equal(t, last, sizes[len(sizes)-1])
					for _, s := range sizes[:len(sizes)-1] {
						assert.Equal(t, size, s)
					}
					assert.Equal(t, f.users, all)
				} else {
					assert.Empty(t, all)
				}

				assert.Equal(t, 1, f.conn.connects, "one cursor for the whole scan")
				f.requireReleased(t)
			})
		}
	}
}

func TestBatches_InvalidSizeFailsFast(t *testing.T) {
	for _, size := range []int{0, -1} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			f := newFixture(t, 3)

			var errs []error
			for batch, err := range f.streamer.Batches(context.Background(), size) {
				require.Nil(t, batch)
				errs = append(errs, err)
			}

			require.Len(t, errs, 1)
			var valErr *domain.ValidationError
			require.ErrorAs(t, errs[0], &valErr)
			assert.NotErrorIs(t, errs[0], domain.ErrDataSource)
			assert.Zero(t, f.conn.calls, "invalid input must not reach the store")
		})
	}
}

func TestBatches_ReleasesOnEarlyBreak(t *testing.T) {
	f := newFixture(t, 30)

	var got []domain.User
	for batch, err := range f.streamer.Batches(context.Background(), 4) {
		require.NoError(t, err)
		got = append(got, batch...)
		if len(got) >= 8 {
			break
		}
	}

	assert.Equal(t, f.users[:8], got)
	f.requireReleased(t)
}

func TestBatches_QueryError(t *testing.T) {
	f := newFixture(t, 3)
	dropUserTable(t, f.db)

	var errs []error
	for _, err := range f.streamer.Batches(context.Background(), 2) {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrDataSource)
	f.requireReleased(t)
}

func TestFilterUsers_OlderThan25(t *testing.T) {
	f := newFixture(t, 60)

	var got []domain.User
	for u, err := range FilterUsers(f.streamer.Batches(context.Background(), 7), OlderThan(25)) {
		require.NoError(t, err)
		got = append(got, u)
	}

	var want []domain.User
	for _, u := range f.users {
		if u.Age > 25 {
			want = append(want, u)
		}
	}
	require.NotEmpty(t, want)
	assert.Equal(t, want, got)
	f.requireReleased(t)
}

func TestFilterUsers_StopsUpstreamOnBreak(t *testing.T) {
	f := newFixture(t, 60)

	count := 0
	for _, err := range FilterUsers(f.streamer.Batches(context.Background(), 5), OlderThan(25)) {
		require.NoError(t, err)
		count++
		if count == 3 {
			break
		}
	}

	assert.Equal(t, 3, count)
	f.requireReleased(t)
}

func TestFilterUsers_PassesErrorThrough(t *testing.T) {
	f := newFixture(t, 3)

	var errs []error
	for _, err := range FilterUsers(f.streamer.Batches(context.Background(), 0), OlderThan(25)) {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "batch size must be at least 1")
}

func TestOlderThan(t *testing.T) {
	keep := OlderThan(25)
	assert.False(t, keep(domain.User{Age: 25}))
	assert.True(t, keep(domain.User{Age: 26}))
}

func TestBatches_BadRowYieldsPartialBatchThenError(t *testing.T) {
	f := newFixture(t, 5)
	corruptAge(t, f.db, f.users[3].UserID)

	var batches [][]domain.User
	var errs []error
	for batch, err := range f.streamer.Batches(context.Background(), 2) {
		if err != nil {
			assert.Nil(t, batch)
			errs = append(errs, err)
			continue
		}
		require.Empty(t, errs, "no batch may follow the error")
		batches = append(batches, batch)
	}

	assert.Equal(t, [][]domain.User{f.users[0:2], f.users[2:3]}, batches)
	require.Len(t, errs, 1)
	var queryErr *domain.QueryError
	require.ErrorAs(t, errs[0], &queryErr)
	assert.Contains(t, errs[0].Error(), `scan age "old"`)
	f.requireReleased(t)
}

func TestBatches_BadFirstRowYieldsOnlyError(t *testing.T) {
	f := newFixture(t, 3)
	corruptAge(t, f.db, f.users[0].UserID)

	var errs []error
	for batch, err := range f.streamer.Batches(context.Background(), 2) {
		require.Error(t, err, "unexpected batch %v", batch)
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrDataSource)
	f.requireReleased(t)
}
