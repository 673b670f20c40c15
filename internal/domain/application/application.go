package application

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusReviewed    Status = "reviewed"
	StatusShortlisted Status = "shortlisted"
	StatusInterviewed Status = "interviewed"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusShortlisted, StatusInterviewed, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound = errors.New("job application not found")
	// at most one application per (job, user)
	ErrAlreadyApplied = errors.New("already applied to this job")
	// applicant details are frozen once the status leaves pending
	ErrNotPending = errors.New("application is no longer pending")
)

type Application struct {
	ID               string        `json:"id"`
	JobID            string        `json:"jobId"`
	UserID           string        `json:"userId"`
	ApplicantName    string        `json:"applicantName"`
	ApplicantPhone   string        `json:"applicantPhone"`
	ApplicantEmail   string        `json:"applicantEmail"`
	ApplicantAddress string        `json:"applicantAddress"`
	CoverLetter      *string       `json:"coverLetter,omitempty"`
	Experience       *string       `json:"experience,omitempty"`
	Skills           *string       `json:"skills,omitempty"`
	CVFilePath       *string       `json:"cvFilePath,omitempty"`
	Status           Status        `json:"status"`
	Notes            *string       `json:"notes,omitempty"`
	ReviewedAt       *time.Time    `json:"reviewedAt,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Job              *job.Job      `json:"job,omitempty"`
	Applicant        *user.Summary `json:"applicant,omitempty"`

	// JobOwnerID is always loaded by the store; authorization depends on it.
	JobOwnerID string `json:"-"`
}

// SubmitRequest carries the applicant snapshot copied at submission time.
type SubmitRequest struct {
	JobID            string  `json:"jobId" binding:"required,uuid"`
	ApplicantName    string  `json:"applicantName" binding:"required,max=255"`
	ApplicantPhone   string  `json:"applicantPhone" binding:"required,max=20"`
	ApplicantEmail   string  `json:"applicantEmail" binding:"required,email,max=255"`
	ApplicantAddress string  `json:"applicantAddress" binding:"required"`
	CoverLetter      *string `json:"coverLetter" binding:"omitempty,max=1000"`
	Experience       *string `json:"experience"`
	Skills           *string `json:"skills"`
	CVFilePath       *string `json:"cvFilePath" binding:"omitempty,max=255"`
}

func NewFromSubmit(req SubmitRequest, userID, jobOwnerID string, now time.Time) Application {
	now = now.UTC()

	return Application{
		ID:               uuid.NewString(),
		JobID:            req.JobID,
		UserID:           userID,
		ApplicantName:    strings.TrimSpace(req.ApplicantName),
		ApplicantPhone:   strings.TrimSpace(req.ApplicantPhone),
		ApplicantEmail:   strings.TrimSpace(req.ApplicantEmail),
		ApplicantAddress: req.ApplicantAddress,
		CoverLetter:      req.CoverLetter,
		Experience:       req.Experience,
		Skills:           req.Skills,
		CVFilePath:       req.CVFilePath,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
		JobOwnerID:       jobOwnerID,
	}
}

// Scope narrows application listings to what an actor may see.
// Both nil means every application.
type Scope struct {
	ApplicantID *string
	EmployerID  *string
}

type ListFilter struct {
	Scope   Scope
	Status  *Status
	JobID   *string
	Page    int
	PerPage int
}

func (f ListFilter) Offset() int {
	return job.PageOffset(f.Page, f.PerPage)
}

// Matches is the in-memory equivalent of the listing WHERE clause.
func (f ListFilter) Matches(a Application) bool {
	if f.Scope.ApplicantID != nil && a.UserID != *f.Scope.ApplicantID {
		return false
	}
	if f.Scope.EmployerID != nil && a.JobOwnerID != *f.Scope.EmployerID {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.JobID != nil && a.JobID != *f.JobID {
		return false
	}
	return true
}

