package tasks

import "time"

// Payloads carry everything the notifier needs so the worker never has to
// join back into jobs or users.

type ApplicationSubmittedPayload struct {
	ApplicationID string    `json:"applicationId"`
	JobID         string    `json:"jobId"`
	JobTitle      string    `json:"jobTitle"`
	EmployerEmail string    `json:"employerEmail"`
	EmployerName  string    `json:"employerName"`
	ApplicantName string    `json:"applicantName"`
	RequestID     string    `json:"requestId,omitempty"`
	RequestedAt   time.Time `json:"requestedAt"`
}

type ApplicationReviewedPayload struct {
	ApplicationID  string    `json:"applicationId"`
	JobID          string    `json:"jobId"`
	JobTitle       string    `json:"jobTitle"`
	ApplicantEmail string    `json:"applicantEmail"`
	ApplicantName  string    `json:"applicantName"`
	Status         string    `json:"status"`
	RequestID      string    `json:"requestId,omitempty"`
	RequestedAt    time.Time `json:"requestedAt"`
}
