package movie

import "math"

// SortField names a sortable movie column.
type SortField string

// Sortable fields accepted by the listing query.
const (
	SortByTime   SortField = "time"
	SortByRating SortField = "rating"
	SortByTitle  SortField = "title"
)

// SortOrder is the direction of a listing sort.
type SortOrder string

// Sort directions accepted by the listing query.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortField maps raw input onto a known field, falling back to time.
func ParseSortField(raw string) SortField {
	switch f := SortField(raw); f {
	case SortByTime, SortByRating, SortByTitle:
		return f
	default:
		return SortByTime
	}
}

// ParseSortOrder maps raw input onto a known order, falling back to desc.
func ParseSortOrder(raw string) SortOrder {
	switch o := SortOrder(raw); o {
	case OrderAsc, OrderDesc:
		return o
	default:
		return OrderDesc
	}
}

// NormalizeSort clamps both sort parameters to their allowed values.
func NormalizeSort(field SortField, order SortOrder) (SortField, SortOrder) {
	return ParseSortField(string(field)), ParseSortOrder(string(order))
}

// Pagination describes one page of a listing response.
type Pagination struct {
	TotalCount  int `json:"total_count"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
}

// NewPagination computes page totals for total rows split into perPage-sized pages.
func NewPagination(total, page, perPage int) Pagination {
	return Pagination{
		TotalCount:  total,
		TotalPages:  TotalPages(total, perPage),
		CurrentPage: page,
		PerPage:     perPage,
	}
}

// TotalPages returns ceil(total/perPage). A non-positive perPage yields zero pages.
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Offset converts a 1-based page number into a row offset. Offsets that
// would overflow saturate at math.MaxInt, which is past any real table.
func Offset(page, perPage int) int {
	if page < 1 || perPage < 1 {
		return 0
	}
	if page-1 > math.MaxInt/perPage {
		return math.MaxInt
	}
	return (page - 1) * perPage
}
