package utils

import "strconv"

// Page is the envelope shared by every offset-paginated listing.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PerPage  int `json:"perPage"`
	Total    int `json:"total"`
	LastPage int `json:"lastPage"`
}

func NewPage[T any](items []T, page, perPage, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Page:     page,
		PerPage:  perPage,
		Total:    total,
		LastPage: LastPage(total, perPage),
	}
}

// LastPage is at least 1 so an empty listing still has a page to render.
func LastPage(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// MaxPage caps the page number so (page-1)*perPage stays a sane OFFSET.
const MaxPage = 100000

// ParsePage reads a 1-based page number; anything unparsable or below 1 is
// page 1, anything past MaxPage is MaxPage.
func ParsePage(raw string) int {
	if raw == "" {
		return 1
	}
	p, err := strconv.Atoi(raw)
	if err != nil || p < 1 {
		return 1
	}
	if p > MaxPage {
		return MaxPage
	}
	return p
}
