package store

// Listing limits for the review queue and audit views.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationParams narrows a listing query. Page is 1-indexed; Search is an
// optional substring filter applied by the individual listing.
type PaginationParams struct {
	Page     int
	PageSize int
	Search   string
}

// PaginationResult is the pager block returned alongside every listing.
type PaginationResult struct {
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	HasPrev     bool  `json:"has_prev"`
	HasNext     bool  `json:"has_next"`
}

// NewPaginationParams clamps raw query values into a usable range.
func NewPaginationParams(page, pageSize int, search string) PaginationParams {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return PaginationParams{Page: page, PageSize: pageSize, Search: search}
}

// CalculatePagination derives the pager block for total rows. A page past
// the end is pulled back to the last page so a stale link still lands on
// real data.
func CalculatePagination(total int64, currentPage, pageSize int) PaginationResult {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	if currentPage < 1 {
		currentPage = 1
	}
	if totalPages > 0 && currentPage > totalPages {
		currentPage = totalPages
	}

	return PaginationResult{
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: currentPage,
		PageSize:    pageSize,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
	}
}
