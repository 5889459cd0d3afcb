// Package pagination reads page/per_page query parameters and builds the
// envelope that paginated list endpoints respond with.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultPerPage applies when the request carries no per_page parameter.
	DefaultPerPage = 20
	// MaxPerPage caps per_page so a single request cannot pull an unbounded
	// slice of the coupon table.
	MaxPerPage = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first page at the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest extracts pagination parameters from an HTTP request. Values
// that are missing, non-numeric, or out of range fall back to the defaults.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := DefaultParams()

	if v := positiveInt(q.Get("page")); v > 0 {
		p.Page = v
	}
	if v := positiveInt(q.Get("per_page")); v > 0 && v <= MaxPerPage {
		p.PerPage = v
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// positiveInt parses s, returning 0 for anything that is not a positive
// integer.
func positiveInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0
	}
	return v
}

// Result wraps a page of items together with enough metadata for a client
// to render pagination controls.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult builds the response envelope for one page of a listing.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	totalPages := (totalCount + params.PerPage - 1) / params.PerPage

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
