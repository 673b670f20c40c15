package notifications

import "context"

// ApplicationSubmittedInput tells an employer that someone applied.
type ApplicationSubmittedInput struct {
	EmployerEmail string
	EmployerName  string
	ApplicantName string
	JobID         string
	JobTitle      string
	ApplicationID string
}

// ApplicationReviewedInput tells an applicant their status changed.
type ApplicationReviewedInput struct {
	ApplicantEmail string
	ApplicantName  string
	JobID          string
	JobTitle       string
	ApplicationID  string
	Status         string
}

type Notifier interface {
	SendApplicationSubmitted(ctx context.Context, in ApplicationSubmittedInput) error
	SendApplicationReviewed(ctx context.Context, in ApplicationReviewedInput) error
}
