/*
Package pagination provides standardized offset/limit navigation for the
destination adapter's search endpoints.

It handles clamping page sizes to sane bounds and calculating the next
page's parameters, mirroring the paginated-range scheme the download manager
and the destination's search API both use.

Usage:

	params := pagination.Params{Page: 1, Limit: pagination.DefaultLimit}
	meta := pagination.NewMeta(params.Page, params.Limit, totalCount)
	next := params.Next()

Architecture:

  - Params: the requested page and page size, with offset derivation.
  - Meta: a uniform result describing how many pages/items exist in total.
  - Safety: MaxLimit prevents a misconfigured adapter from requesting
    unbounded result pages from a destination.
*/
package pagination

// # Common Defaults

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 20

	// MaxLimit is the upper bound for items per page to prevent system abuse.
	MaxLimit = 100

	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
)

// # Request Parameters

// Params holds the page and limit used to page through a destination's
// search results or a source's discovery listing.
type Params struct {
	Page  int
	Limit int
}

// Clamped returns a copy of params with Page and Limit coerced into valid,
// bounded ranges.
func (params Params) Clamped() Params {
	page := params.Page
	if page < 1 {
		page = DefaultPage
	}

	limit := params.Limit
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}

	return Params{Page: page, Limit: limit}
}

// Offset returns the zero-based item offset derived from [Page] and [Limit].
func (params Params) Offset() int {

	// Ensure we don't return negative offsets
	if params.Page <= 1 {
		return 0
	}

	// Calculate the offset
	return (params.Page - 1) * params.Limit
}

// Next returns the params for the following page, keeping the same limit.
func (params Params) Next() Params {
	return Params{Page: params.Page + 1, Limit: params.Limit}
}

// # Response Metadata

// Meta is the pagination metadata describing a single page of results.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta constructs pagination metadata for a page of results.
func NewMeta(page, limit, total int) Meta {

	// Calculate the total number of pages (rounding up)
	totalPages := 0

	// Ensure we don't return negative page counts
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	// Return the pagination metadata
	return Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// HasMore reports whether another page follows the page described by meta.
func (meta Meta) HasMore() bool {
	return meta.Page < meta.TotalPages
}
