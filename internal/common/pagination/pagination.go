// Package pagination reads page parameters from admin list requests and
// wraps one page of rows with its totals.
package pagination

import (
	"math"
	"net/http"
	"strconv"

	"newsletter-gate/internal/common/errors"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params is the requested page. Limit and Offset are derived.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Limit   int `json:"-"`
	Offset  int `json:"-"`
}

// Page is one page of results
type Page[T any] struct {
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
	Results      []T `json:"results"`
}

// Parse reads ?page and ?per_page. Missing values take defaults, per_page is
// capped at MaxPerPage and anything that is not a positive number is a
// validation error.
func Parse(r *http.Request) (Params, error) {
	page, err := positive(r.URL.Query().Get("page"), 1, "page")
	if err != nil {
		return Params{}, err
	}
	perPage, err := positive(r.URL.Query().Get("per_page"), DefaultPerPage, "per_page")
	if err != nil {
		return Params{}, err
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	// the offset must fit in an int
	if page-1 > math.MaxInt/perPage {
		return Params{}, errors.ValidationError("page is out of range")
	}

	return Params{
		Page:    page,
		PerPage: perPage,
		Limit:   perPage,
		Offset:  (page - 1) * perPage,
	}, nil
}

func positive(raw string, def int, name string) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.ValidationError(name + " must be a positive number")
	}
	return n, nil
}

// NewPage wraps results with the totals of the whole result set
func NewPage[T any](results []T, p Params, total int) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{
		Page:         p.Page,
		PerPage:      p.PerPage,
		TotalPages:   TotalPages(total, p.PerPage),
		TotalResults: total,
		Results:      results,
	}
}

// TotalPages is at least 1 so an empty table still has a first page
func TotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}
