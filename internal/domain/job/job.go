package job

import (
	"errors"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft   Status = "draft"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusClosed  Status = "closed"
	StatusExpired Status = "expired"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusClosed, StatusExpired:
		return true
	default:
		return false
	}
}

type SalaryType string

const (
	SalaryHourly  SalaryType = "hourly"
	SalaryDaily   SalaryType = "daily"
	SalaryWeekly  SalaryType = "weekly"
	SalaryMonthly SalaryType = "monthly"
)

type WorkType string

const (
	WorkFullTime  WorkType = "full-time"
	WorkPartTime  WorkType = "part-time"
	WorkContract  WorkType = "contract"
	WorkFreelance WorkType = "freelance"
)

func (w WorkType) IsValid() bool {
	switch w {
	case WorkFullTime, WorkPartTime, WorkContract, WorkFreelance:
		return true
	default:
		return false
	}
}

var ErrNotFound = errors.New("job not found")

type Job struct {
	ID                  string             `json:"id"`
	UserID              string             `json:"userId"`
	CategoryID          string             `json:"jobCategoryId"`
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	StoreName           string             `json:"storeName"`
	StoreAddress        string             `json:"storeAddress"`
	StorePhone          string             `json:"storePhone"`
	SalaryMin           *float64           `json:"salaryMin,omitempty"`
	SalaryMax           *float64           `json:"salaryMax,omitempty"`
	SalaryType          SalaryType         `json:"salaryType"`
	Requirements        *string            `json:"requirements,omitempty"`
	Benefits            *string            `json:"benefits,omitempty"`
	WorkType            WorkType           `json:"workType"`
	PositionsAvailable  int                `json:"positionsAvailable"`
	ApplicationDeadline *time.Time         `json:"applicationDeadline,omitempty"`
	Status              Status             `json:"status"`
	PublishedAt         *time.Time         `json:"publishedAt,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
	Category            *category.Category `json:"category,omitempty"`
	Employer            *user.Summary      `json:"employer,omitempty"`
	ApplicationsCount   *int               `json:"applicationsCount,omitempty"`
}

// IsPubliclyVisible reports whether the posting belongs in the public listing at now.
func (j Job) IsPubliclyVisible(now time.Time) bool {
	if j.PublishedAt == nil || j.PublishedAt.After(now) {
		return false
	}
	return j.Status == StatusActive
}

// Fields is the validated, normalized set of writable posting attributes.
// Owner, publication time and timestamps are never part of it.
type Fields struct {
	CategoryID          string
	Title               string
	Description         string
	StoreName           string
	StoreAddress        string
	StorePhone          string
	SalaryMin           *float64
	SalaryMax           *float64
	SalaryType          SalaryType
	Requirements        *string
	Benefits            *string
	WorkType            WorkType
	PositionsAvailable  int
	ApplicationDeadline *time.Time
	Status              Status
}

func New(ownerID string, f Fields, now time.Time) Job {
	now = now.UTC()
	published := now

	j := Job{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		PublishedAt: &published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	j.apply(f)

	return j
}

// Apply overwrites the writable attributes, leaving ownership and publication untouched.
func (j Job) Apply(f Fields, now time.Time) Job {
	j.apply(f)
	j.UpdatedAt = now.UTC()
	return j
}

func (j *Job) apply(f Fields) {
	j.CategoryID = f.CategoryID
	j.Title = f.Title
	j.Description = f.Description
	j.StoreName = f.StoreName
	j.StoreAddress = f.StoreAddress
	j.StorePhone = f.StorePhone
	j.SalaryMin = f.SalaryMin
	j.SalaryMax = f.SalaryMax
	j.SalaryType = f.SalaryType
	j.Requirements = f.Requirements
	j.Benefits = f.Benefits
	j.WorkType = f.WorkType
	j.PositionsAvailable = f.PositionsAvailable
	j.ApplicationDeadline = f.ApplicationDeadline
	j.Status = f.Status
}
