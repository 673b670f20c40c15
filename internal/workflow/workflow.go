// Package workflow holds the job application lifecycle and the per-role
// update commands. Each command lists exactly the fields its role may write.
package workflow

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/application"
)

var (
	ErrNotPending    = application.ErrNotPending
	ErrInvalidStatus = errors.New("invalid application status")
)

// ApplicantEdit is what an applicant may change, and only before review.
type ApplicantEdit struct {
	ApplicantName    string  `json:"applicantName" binding:"required,max=255"`
	ApplicantPhone   string  `json:"applicantPhone" binding:"required,max=20"`
	ApplicantEmail   string  `json:"applicantEmail" binding:"required,email,max=255"`
	ApplicantAddress string  `json:"applicantAddress" binding:"required"`
	CoverLetter      *string `json:"coverLetter" binding:"omitempty,max=1000"`
	Experience       *string `json:"experience"`
	Skills           *string `json:"skills"`
}

// Review is what the owning employer or an admin may change.
type Review struct {
	Status string  `json:"status" binding:"required,oneof=pending reviewed shortlisted interviewed accepted rejected"`
	Notes  *string `json:"notes" binding:"omitempty,max=5000"`
}

// Transition describes a status change produced by a review.
type Transition struct {
	From application.Status
	To   application.Status
}

func (t Transition) Changed() bool { return t.From != t.To }

// LeftPending reports a move off the initial state.
func (t Transition) LeftPending() bool {
	return t.From == application.StatusPending && t.To != application.StatusPending
}

func ApplyApplicantEdit(a application.Application, e ApplicantEdit, now time.Time) (application.Application, error) {
	if a.Status != application.StatusPending {
		return a, ErrNotPending
	}

	a.ApplicantName = strings.TrimSpace(e.ApplicantName)
	a.ApplicantPhone = strings.TrimSpace(e.ApplicantPhone)
	a.ApplicantEmail = strings.TrimSpace(e.ApplicantEmail)
	a.ApplicantAddress = e.ApplicantAddress
	a.CoverLetter = e.CoverLetter
	a.Experience = e.Experience
	a.Skills = e.Skills
	a.UpdatedAt = now.UTC()

	return a, nil
}

// ApplyReview sets status and, when given, notes. Any status may follow any other.
// Every move to a non-pending status stamps reviewed_at; going back to
// pending keeps the previous stamp.
func ApplyReview(a application.Application, r Review, now time.Time) (application.Application, Transition, error) {
	next := application.Status(r.Status)
	if !next.IsValid() {
		return a, Transition{}, ErrInvalidStatus
	}

	tr := Transition{From: a.Status, To: next}
	now = now.UTC()

	a.Status = next
	if r.Notes != nil {
		a.Notes = r.Notes
	}
	if next != application.StatusPending {
		reviewed := now
		a.ReviewedAt = &reviewed
	}
	a.UpdatedAt = now

	return a, tr, nil
}
