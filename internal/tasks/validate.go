package tasks

import "strings"

// ValidatePayload checks the identifiers and recipients a handler relies on.
func ValidatePayload(t Type, payload any) error {
	if !t.IsValid() {
		return ErrInvalidType
	}

	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch t {
	case TypeApplicationSubmitted:
		var p ApplicationSubmittedPayload
		switch v := payload.(type) {
		case ApplicationSubmittedPayload:
			p = v
		case *ApplicationSubmittedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if blank(p.ApplicationID) || blank(p.JobID) || blank(p.EmployerEmail) {
			return ErrInvalidPayload
		}
		return nil

	case TypeApplicationReviewed:
		var p ApplicationReviewedPayload
		switch v := payload.(type) {
		case ApplicationReviewedPayload:
			p = v
		case *ApplicationReviewedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if blank(p.ApplicationID) || blank(p.ApplicantEmail) || blank(p.Status) {
			return ErrInvalidPayload
		}
		return nil

	default:
		return ErrInvalidType
	}
}
