package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/geocoder89/storejobs/internal/domain/task"
)

func EncodePayload(t Type, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidType
	}

	switch t {
	case TypeApplicationSubmitted:
		switch payload.(type) {
		case ApplicationSubmittedPayload, *ApplicationSubmittedPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}

	case TypeApplicationReviewed:
		switch payload.(type) {
		case ApplicationReviewedPayload, *ApplicationReviewedPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals t.Payload into the typed payload for its type.
func DecodePayload(t task.Task) (any, error) {
	typ := Type(t.Type)
	if !typ.IsValid() {
		return nil, ErrInvalidType
	}
	if len(t.Payload) == 0 {
		return nil, ErrInvalidPayload
	}

	switch typ {
	case TypeApplicationSubmitted:
		var p ApplicationSubmittedPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, nil

	case TypeApplicationReviewed:
		var p ApplicationReviewedPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidType
	}
}
