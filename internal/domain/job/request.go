package job

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// CreateJobRequest is the payload for posting a new job. Status defaults to active.
type CreateJobRequest struct {
	CategoryID          string   `json:"jobCategoryId" binding:"required,uuid"`
	Title               string   `json:"title" binding:"required,max=255"`
	Description         string   `json:"description" binding:"required"`
	StoreName           string   `json:"storeName" binding:"required,max=255"`
	StoreAddress        string   `json:"storeAddress" binding:"required"`
	StorePhone          string   `json:"storePhone" binding:"required,max=20"`
	SalaryMin           *float64 `json:"salaryMin" binding:"omitempty,gte=0"`
	SalaryMax           *float64 `json:"salaryMax" binding:"omitempty,gte=0"`
	SalaryType          string   `json:"salaryType" binding:"omitempty,oneof=hourly daily weekly monthly"`
	Requirements        *string  `json:"requirements"`
	Benefits            *string  `json:"benefits"`
	WorkType            string   `json:"workType" binding:"required,oneof=full-time part-time contract freelance"`
	PositionsAvailable  int      `json:"positionsAvailable" binding:"required,min=1"`
	ApplicationDeadline *string  `json:"applicationDeadline" binding:"omitempty,datetime=2006-01-02"`
	Status              string   `json:"status" binding:"omitempty,oneof=draft active paused closed"`
}

// UpdateJobRequest is a full replacement of the writable attributes.
type UpdateJobRequest struct {
	CategoryID          string   `json:"jobCategoryId" binding:"required,uuid"`
	Title               string   `json:"title" binding:"required,max=255"`
	Description         string   `json:"description" binding:"required"`
	StoreName           string   `json:"storeName" binding:"required,max=255"`
	StoreAddress        string   `json:"storeAddress" binding:"required"`
	StorePhone          string   `json:"storePhone" binding:"required,max=20"`
	SalaryMin           *float64 `json:"salaryMin" binding:"omitempty,gte=0"`
	SalaryMax           *float64 `json:"salaryMax" binding:"omitempty,gte=0"`
	SalaryType          string   `json:"salaryType" binding:"required,oneof=hourly daily weekly monthly"`
	Requirements        *string  `json:"requirements"`
	Benefits            *string  `json:"benefits"`
	WorkType            string   `json:"workType" binding:"required,oneof=full-time part-time contract freelance"`
	PositionsAvailable  int      `json:"positionsAvailable" binding:"required,min=1"`
	ApplicationDeadline *string  `json:"applicationDeadline" binding:"omitempty,datetime=2006-01-02"`
	Status              string   `json:"status" binding:"required,oneof=draft active paused closed"`
}

// FieldViolation mirrors the HTTP layer's field error shape for cross-field rules
// that struct tags cannot express.
type FieldViolation struct {
	Field   string
	Rule    string
	Param   string
	Message string
}

type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (r CreateJobRequest) Fields(now time.Time) (Fields, error) {
	salaryType := r.SalaryType
	if salaryType == "" {
		salaryType = string(SalaryMonthly)
	}

	status := r.Status
	if status == "" {
		status = string(StatusActive)
	}

	return buildFields(rawFields{
		categoryID:   r.CategoryID,
		title:        r.Title,
		description:  r.Description,
		storeName:    r.StoreName,
		storeAddress: r.StoreAddress,
		storePhone:   r.StorePhone,
		salaryMin:    r.SalaryMin,
		salaryMax:    r.SalaryMax,
		salaryType:   salaryType,
		requirements: r.Requirements,
		benefits:     r.Benefits,
		workType:     r.WorkType,
		positions:    r.PositionsAvailable,
		deadline:     r.ApplicationDeadline,
		status:       status,
	}, now)
}

func (r UpdateJobRequest) Fields(now time.Time) (Fields, error) {
	return buildFields(rawFields{
		categoryID:   r.CategoryID,
		title:        r.Title,
		description:  r.Description,
		storeName:    r.StoreName,
		storeAddress: r.StoreAddress,
		storePhone:   r.StorePhone,
		salaryMin:    r.SalaryMin,
		salaryMax:    r.SalaryMax,
		salaryType:   r.SalaryType,
		requirements: r.Requirements,
		benefits:     r.Benefits,
		workType:     r.WorkType,
		positions:    r.PositionsAvailable,
		deadline:     r.ApplicationDeadline,
		status:       r.Status,
	}, now)
}

type rawFields struct {
	categoryID   string
	title        string
	description  string
	storeName    string
	storeAddress string
	storePhone   string
	salaryMin    *float64
	salaryMax    *float64
	salaryType   string
	requirements *string
	benefits     *string
	workType     string
	positions    int
	deadline     *string
	status       string
}

func buildFields(in rawFields, now time.Time) (Fields, error) {
	var violations []FieldViolation

	if in.salaryMin != nil && in.salaryMax != nil && *in.salaryMax < *in.salaryMin {
		violations = append(violations, FieldViolation{
			Field:   "salaryMax",
			Rule:    "gtefield",
			Param:   "salaryMin",
			Message: "must be greater than or equal to salaryMin",
		})
	}

	if Status(in.status) == StatusExpired {
		violations = append(violations, FieldViolation{
			Field:   "status",
			Rule:    "oneof",
			Param:   "draft active paused closed",
			Message: "expired is set by the system only",
		})
	}

	var deadline *time.Time
	if in.deadline != nil && strings.TrimSpace(*in.deadline) != "" {
		d, err := time.Parse(dateLayout, strings.TrimSpace(*in.deadline))
		if err != nil {
			violations = append(violations, FieldViolation{
				Field:   "applicationDeadline",
				Rule:    "datetime",
				Param:   dateLayout,
				Message: fmt.Sprintf("must be a date formatted as %s", dateLayout),
			})
		} else {
			today := truncateToDate(now)
			if !d.After(today) {
				violations = append(violations, FieldViolation{
					Field:   "applicationDeadline",
					Rule:    "after",
					Param:   "today",
					Message: "must be a date after today",
				})
			}
			deadline = &d
		}
	}

	if len(violations) > 0 {
		return Fields{}, &ValidationError{Violations: violations}
	}

	return Fields{
		CategoryID:          in.categoryID,
		Title:               strings.TrimSpace(in.title),
		Description:         in.description,
		StoreName:           strings.TrimSpace(in.storeName),
		StoreAddress:        in.storeAddress,
		StorePhone:          strings.TrimSpace(in.storePhone),
		SalaryMin:           in.salaryMin,
		SalaryMax:           in.salaryMax,
		SalaryType:          SalaryType(in.salaryType),
		Requirements:        in.requirements,
		Benefits:            in.benefits,
		WorkType:            WorkType(in.workType),
		PositionsAvailable:  in.positions,
		ApplicationDeadline: deadline,
		Status:              Status(in.status),
	}, nil
}

func truncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
