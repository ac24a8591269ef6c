package shared

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// Filter carries paging, sorting and free-text search for list queries.
// Repositories validate OrderBy against their own column allowlist, and
// Filters holds resource-specific switches such as a batch's "active" flag.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]any
}

// DefaultFilter is the first page, newest first.
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: defaultPageSize, OrderBy: "created_at", OrderDir: "desc"}
}

// Limit clamps PageSize to [1, 200]; zero or negative falls back to 20.
func (f Filter) Limit() int {
	if f.PageSize <= 0 {
		return defaultPageSize
	}
	return min(f.PageSize, maxPageSize)
}

func (f Filter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}
