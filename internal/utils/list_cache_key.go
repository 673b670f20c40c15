package utils

import (
	"strconv"
	"strings"

	"github.com/geocoder89/storejobs/internal/domain/job"
)

// JobsListCachePrefix namespaces every cached public listing; job writes drop it whole.
const JobsListCachePrefix = "jobs:list:v1:"

// BuildJobsListCacheKey keys on the filters exactly as the cached body echoes
// them, so search stays case-sensitive here even though matching is not.
func BuildJobsListCacheKey(f job.ListFilter) string {
	cat := ""
	if f.CategorySlug != nil {
		cat = *f.CategorySlug
	}
	s := ""
	if f.Search != nil {
		s = strings.TrimSpace(*f.Search)
	}
	wt := ""
	if f.WorkType != nil {
		wt = string(*f.WorkType)
	}
	sal := ""
	if f.SalaryMin != nil {
		sal = strconv.FormatFloat(*f.SalaryMin, 'f', -1, 64)
	}

	return JobsListCachePrefix + "page=" + strconv.Itoa(f.Page) +
		":per=" + strconv.Itoa(f.PerPage) +
		":cat=" + cat +
		":q=" + s +
		":wt=" + wt +
		":sal=" + sal
}
