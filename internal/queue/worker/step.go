package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/delivery"
	"github.com/geocoder89/storejobs/internal/domain/task"
	"github.com/geocoder89/storejobs/internal/notifications"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/geocoder89/storejobs/internal/tasks"
	"go.opentelemetry.io/otel/attribute"
)

const (
	resultDone   = "done"
	resultRetry  = "retry"
	resultFailed = "failed"
)

var errDeliveryInProgress = errors.New("delivery in progress elsewhere")

// ProcessOne claims and runs a single task. It reports false when the queue was empty.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	t, err := w.store.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	w.metrics.IncClaimed(t.Type)
	if w.prom != nil {
		w.prom.TasksInFlight.Inc()
		defer w.prom.TasksInFlight.Dec()
	}

	// a claimed task finishes even while the process is shutting down
	execCtx, cancelExec := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.LockTTL)
	defer cancelExec()

	execCtx, span := observability.StartSpan(execCtx, "task.execute",
		attribute.String("task.id", t.ID),
		attribute.String("task.type", t.Type),
		attribute.Int("task.attempt", t.Attempts+1),
	)
	defer span.End()

	start := time.Now()
	err = w.execute(execCtx, t)
	elapsed := time.Since(start)
	w.metrics.ObserveDuration(t.Type, elapsed)

	if err != nil {
		result := w.handleFailure(execCtx, t, err)
		w.observe(t.Type, result, elapsed)
		return true, nil
	}

	if err := w.store.MarkDone(execCtx, t.ID); err != nil {
		_ = w.store.MarkFailed(execCtx, t.ID, "mark_done_failed: "+err.Error())
		w.observe(t.Type, resultFailed, elapsed)
		return true, err
	}

	w.metrics.IncDone(t.Type)
	w.observe(t.Type, resultDone, elapsed)
	w.log.Info("task done", "task_id", t.ID, "task_type", t.Type, "attempt", t.Attempts+1)

	return true, nil
}

func (w *Worker) observe(taskType, result string, d time.Duration) {
	if w.prom == nil {
		return
	}
	w.prom.TaskResults.WithLabelValues(taskType, result).Inc()
	w.prom.TaskDuration.WithLabelValues(taskType, result).Observe(d.Seconds())
}

func (w *Worker) execute(ctx context.Context, t task.Task) error {
	payload, err := tasks.DecodePayload(t)
	if err != nil {
		return err
	}

	if err := tasks.ValidatePayload(tasks.Type(t.Type), payload); err != nil {
		return err
	}

	key := delivery.Key{Kind: t.Type, DedupKey: t.ID}
	if t.IdempotencyKey != nil {
		key.DedupKey = *t.IdempotencyKey
	}

	switch p := payload.(type) {
	case tasks.ApplicationSubmittedPayload:
		return w.deliver(ctx, key, t.ID, p.EmployerEmail, func(ctx context.Context) error {
			return w.notifier.SendApplicationSubmitted(ctx, notifications.ApplicationSubmittedInput{
				EmployerEmail: p.EmployerEmail,
				EmployerName:  p.EmployerName,
				ApplicantName: p.ApplicantName,
				JobID:         p.JobID,
				JobTitle:      p.JobTitle,
				ApplicationID: p.ApplicationID,
			})
		})

	case tasks.ApplicationReviewedPayload:
		return w.deliver(ctx, key, t.ID, p.ApplicantEmail, func(ctx context.Context) error {
			return w.notifier.SendApplicationReviewed(ctx, notifications.ApplicationReviewedInput{
				ApplicantEmail: p.ApplicantEmail,
				ApplicantName:  p.ApplicantName,
				JobID:          p.JobID,
				JobTitle:       p.JobTitle,
				ApplicationID:  p.ApplicationID,
				Status:         p.Status,
			})
		})

	default:
		return tasks.ErrInvalidType
	}
}

// deliver wraps send with the ledger: an already sent notification is a
// success, one in flight elsewhere is retried later.
func (w *Worker) deliver(ctx context.Context, key delivery.Key, taskID, recipient string, send func(context.Context) error) error {
	if w.ledger == nil {
		return send(ctx)
	}

	if err := w.ledger.TryStart(ctx, key, taskID, recipient); err != nil {
		switch {
		case errors.Is(err, delivery.ErrAlreadySent):
			w.log.Info("notification already sent", "task_id", taskID, "kind", key.Kind)
			return nil
		case errors.Is(err, delivery.ErrInProgress):
			return errDeliveryInProgress
		default:
			return fmt.Errorf("delivery ledger: %w", err)
		}
	}

	if err := send(ctx); err != nil {
		if mErr := w.ledger.MarkFailed(ctx, key, err.Error()); mErr != nil {
			w.log.Error("mark delivery failed", "task_id", taskID, "err", mErr)
		}
		return err
	}

	if err := w.ledger.MarkSent(ctx, key); err != nil {
		// sent but unrecorded; the task itself still completes
		w.log.Error("mark delivery sent", "task_id", taskID, "err", err)
	}
	return nil
}

// permanent reports errors no retry can fix.
func permanent(err error) bool {
	return errors.Is(err, tasks.ErrInvalidType) ||
		errors.Is(err, tasks.ErrInvalidPayload) ||
		errors.Is(err, tasks.ErrPayloadTypeMismatch)
}

func (w *Worker) handleFailure(ctx context.Context, t task.Task, execErr error) string {
	msg := execErr.Error()
	nextAttempt := t.Attempts + 1

	if permanent(execErr) || nextAttempt >= t.MaxAttempts {
		if err := w.store.MarkFailed(ctx, t.ID, msg); err != nil {
			w.log.Error("mark task failed", "task_id", t.ID, "err", err)
		}
		w.metrics.IncDeadLettered(t.Type)
		w.log.Error("task failed permanently",
			"task_id", t.ID, "task_type", t.Type, "attempts", nextAttempt, "err", msg)
		return resultFailed
	}

	runAt := w.now().Add(w.backoff(t.Attempts))
	if err := w.store.Reschedule(ctx, t.ID, runAt, msg); err != nil {
		w.log.Error("reschedule task", "task_id", t.ID, "err", err)
	}
	w.metrics.IncRetried(t.Type)
	w.log.Warn("task rescheduled",
		"task_id", t.ID, "task_type", t.Type, "attempt", nextAttempt, "run_at", runAt, "err", msg)

	return resultRetry
}
