package job

import (
	"math"
	"strings"
	"time"
)

const (
	PublicPageSize = 12
	OwnerPageSize  = 10
)

// ListFilter describes the public listing query. Nil fields are not applied.
type ListFilter struct {
	CategorySlug *string
	Search       *string
	WorkType     *WorkType
	SalaryMin    *float64
	Page         int
	PerPage      int
}

// Echo is the filter set handed back to the client alongside the results.
type Echo struct {
	Category  string   `json:"category,omitempty"`
	Search    string   `json:"search,omitempty"`
	WorkType  string   `json:"work_type,omitempty"`
	SalaryMin *float64 `json:"salary_min,omitempty"`
}

func (f ListFilter) Echo() Echo {
	var e Echo
	if f.CategorySlug != nil {
		e.Category = *f.CategorySlug
	}
	if f.Search != nil {
		e.Search = *f.Search
	}
	if f.WorkType != nil {
		e.WorkType = string(*f.WorkType)
	}
	e.SalaryMin = f.SalaryMin
	return e
}

func (f ListFilter) Offset() int {
	return PageOffset(f.Page, f.PerPage)
}

// Matches evaluates the listing predicate against a single posting. The
// category must be loaded for the slug filter to match.
func (f ListFilter) Matches(j Job, now time.Time) bool {
	if !j.IsPubliclyVisible(now) {
		return false
	}

	if f.CategorySlug != nil {
		if j.Category == nil || j.Category.Slug != *f.CategorySlug {
			return false
		}
	}

	if f.Search != nil {
		needle := strings.ToLower(*f.Search)
		if !strings.Contains(strings.ToLower(j.Title), needle) &&
			!strings.Contains(strings.ToLower(j.StoreName), needle) &&
			!strings.Contains(strings.ToLower(j.Description), needle) {
			return false
		}
	}

	if f.WorkType != nil && j.WorkType != *f.WorkType {
		return false
	}

	// only the upper bound has to reach the requested floor
	if f.SalaryMin != nil {
		if j.SalaryMax == nil || *j.SalaryMax < *f.SalaryMin {
			return false
		}
	}

	return true
}

// OwnerFilter scopes the "my jobs" listing.
type OwnerFilter struct {
	OwnerID string
	Page    int
	PerPage int
}

func (f OwnerFilter) Offset() int {
	return PageOffset(f.Page, f.PerPage)
}

// PageOffset saturates instead of wrapping for absurd page numbers.
func PageOffset(page, perPage int) int {
	if page < 1 || perPage < 1 {
		return 0
	}
	if page-1 > math.MaxInt32/perPage {
		return math.MaxInt32
	}
	return (page - 1) * perPage
}
