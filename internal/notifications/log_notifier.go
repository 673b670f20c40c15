package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrProviderDown = errors.New("notification provider down")

// LogNotifier stands in for a mail provider by writing structured log lines.
// Delay and Fail simulate a slow or broken provider.
type LogNotifier struct {
	log   *slog.Logger
	Delay time.Duration
	Fail  bool
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) simulate(ctx context.Context) error {
	if n.Delay > 0 {
		select {
		case <-time.After(n.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n.Fail {
		return ErrProviderDown
	}
	return nil
}

func (n *LogNotifier) SendApplicationSubmitted(ctx context.Context, in ApplicationSubmittedInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.application_submitted",
		"to", in.EmployerEmail,
		"employer", in.EmployerName,
		"applicant", in.ApplicantName,
		"job_id", in.JobID,
		"job_title", in.JobTitle,
		"application_id", in.ApplicationID,
	)
	return nil
}

func (n *LogNotifier) SendApplicationReviewed(ctx context.Context, in ApplicationReviewedInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.application_reviewed",
		"to", in.ApplicantEmail,
		"applicant", in.ApplicantName,
		"job_id", in.JobID,
		"job_title", in.JobTitle,
		"application_id", in.ApplicationID,
		"status", in.Status,
	)
	return nil
}
