// Package delivery models the per-notification ledger that keeps worker
// retries from sending the same message twice.
package delivery

import "errors"

var (
	ErrAlreadySent = errors.New("notification already sent")
	ErrInProgress  = errors.New("notification send in progress")
)

type Status string

const (
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Key identifies one logical notification. DedupKey is the outbox task's
// idempotency key, so a retried task maps onto the same ledger row.
type Key struct {
	Kind     string
	DedupKey string
}
