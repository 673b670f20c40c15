package tasks

type Type string

const (
	// employer hears about a new application on one of their postings
	TypeApplicationSubmitted Type = "application.submitted"
	// applicant hears that their application changed status
	TypeApplicationReviewed Type = "application.reviewed"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeApplicationSubmitted, TypeApplicationReviewed:
		return true
	default:
		return false
	}
}
