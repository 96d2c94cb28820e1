package models

// Pagination describes one page of a listing response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination derives the page descriptor; total pages is ceil(total/limit).
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// PagedResponse is the envelope for paginated listings.
type PagedResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
