package movie

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSortFieldFallsBackToTime(t *testing.T) {
	t.Parallel()

	tests := map[string]SortField{
		"time":    SortByTime,
		"rating":  SortByRating,
		"title":   SortByTitle,
		"":        SortByTime,
		"RATING":  SortByTime,
		"id; --":  SortByTime,
		"created": SortByTime,
	}
	for raw, want := range tests {
		require.Equal(t, want, ParseSortField(raw), "raw=%q", raw)
	}
}

func TestParseSortOrderFallsBackToDesc(t *testing.T) {
	t.Parallel()

	require.Equal(t, OrderAsc, ParseSortOrder("asc"))
	require.Equal(t, OrderDesc, ParseSortOrder("desc"))
	require.Equal(t, OrderDesc, ParseSortOrder(""))
	require.Equal(t, OrderDesc, ParseSortOrder("ascending"))
	require.Equal(t, OrderDesc, ParseSortOrder("DESC"))
}

func TestNormalizeSort(t *testing.T) {
	t.Parallel()

	field, order := NormalizeSort("bogus", "sideways")
	require.Equal(t, SortByTime, field)
	require.Equal(t, OrderDesc, order)

	field, order = NormalizeSort(SortByRating, OrderAsc)
	require.Equal(t, SortByRating, field)
	require.Equal(t, OrderAsc, order)
}

func TestTotalPagesIsCeiling(t *testing.T) {
	t.Parallel()

	for total := 0; total <= 50; total++ {
		for perPage := 1; perPage <= 12; perPage++ {
			got := TotalPages(total, perPage)
			want := total / perPage
			if total%perPage != 0 {
				want++
			}
			require.Equal(t, want, got, "total=%d perPage=%d", total, perPage)
		}
	}
	require.Zero(t, TotalPages(10, 0))
}

func TestNewPaginationAndOffset(t *testing.T) {
	t.Parallel()

	p := NewPagination(5, 2, 2)
	require.Equal(t, Pagination{TotalCount: 5, TotalPages: 3, CurrentPage: 2, PerPage: 2}, p)

	require.Equal(t, 0, Offset(1, 10))
	require.Equal(t, 20, Offset(3, 10))
	require.Equal(t, 0, Offset(0, 10))
	require.Equal(t, math.MaxInt, Offset(math.MaxInt/2, 10))
	require.Equal(t, math.MaxInt, Offset(math.MaxInt, 100))
}

func TestFetchResponseContentType(t *testing.T) {
	t.Parallel()

	resp := FetchResponse{Headers: http.Header{"Content-Type": {"image/webp"}}}
	require.Equal(t, "image/webp", resp.ContentType("image/jpeg"))
	require.Equal(t, "image/jpeg", FetchResponse{}.ContentType("image/jpeg"))
}

func TestRecordItemCopiesMutableFields(t *testing.T) {
	t.Parallel()

	listing := "42"
	rec := Record{
		ID:        7,
		Title:     "Stalker",
		Rating:    "8.6",
		Image:     "https://img.example/p.jpg",
		Abstract:  "导演: Tarkovsky",
		Time:      "2023-01-01 10:00:00",
		DoulistID: &listing,
		CreatedAt: "2024-01-01 00:00:00",
	}
	require.Equal(t, Item{
		Title:    "Stalker",
		Rating:   "8.6",
		Image:    "https://img.example/p.jpg",
		Abstract: "导演: Tarkovsky",
		Time:     "2023-01-01 10:00:00",
	}, rec.Item())
}

func TestStatusErrorMatchesThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("fetch page: %w", &StatusError{URL: "https://x", Code: http.StatusForbidden})
	require.True(t, IsStatusError(err))
	require.Contains(t, err.Error(), "403")
	require.False(t, IsStatusError(errors.New("dial tcp: refused")))
}
