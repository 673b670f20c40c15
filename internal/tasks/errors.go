package tasks

import "errors"

var (
	ErrInvalidType         = errors.New("invalid task type")
	ErrInvalidPayload      = errors.New("invalid task payload")
	ErrPayloadTypeMismatch = errors.New("payload type mismatch for task type")
)
