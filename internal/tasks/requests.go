package tasks

import (
	"time"

	"github.com/geocoder89/storejobs/internal/domain/task"
)

const notifyMaxAttempts = 10

// Submitted builds the outbox row for a new application. The idempotency key
// makes a replayed submit a no-op at the tasks table.
func Submitted(p ApplicationSubmittedPayload, actorID string) (task.CreateRequest, error) {
	if err := ValidatePayload(TypeApplicationSubmitted, p); err != nil {
		return task.CreateRequest{}, err
	}

	raw, err := EncodePayload(TypeApplicationSubmitted, p)
	if err != nil {
		return task.CreateRequest{}, err
	}

	key := "application:submitted:" + p.ApplicationID
	uid := actorID

	return task.CreateRequest{
		Type:           string(TypeApplicationSubmitted),
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    notifyMaxAttempts,
		IdempotencyKey: &key,
		UserID:         &uid,
	}, nil
}

// Reviewed builds the outbox row for a status change. One row per
// (application, status, moment) so repeated reviews each notify.
func Reviewed(p ApplicationReviewedPayload, actorID string) (task.CreateRequest, error) {
	if err := ValidatePayload(TypeApplicationReviewed, p); err != nil {
		return task.CreateRequest{}, err
	}

	raw, err := EncodePayload(TypeApplicationReviewed, p)
	if err != nil {
		return task.CreateRequest{}, err
	}

	key := "application:reviewed:" + p.ApplicationID + ":" + p.Status + ":" +
		p.RequestedAt.UTC().Format(time.RFC3339Nano)
	uid := actorID

	return task.CreateRequest{
		Type:           string(TypeApplicationReviewed),
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    notifyMaxAttempts,
		IdempotencyKey: &key,
		UserID:         &uid,
	}, nil
}
