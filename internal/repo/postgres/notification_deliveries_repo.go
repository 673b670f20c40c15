package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/delivery"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationDeliveriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewNotificationDeliveriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *NotificationDeliveriesRepo {
	return &NotificationDeliveriesRepo{pool: pool, prom: prom}
}

func (r *NotificationDeliveriesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// TryStart claims the right to send key. It returns delivery.ErrAlreadySent
// or delivery.ErrInProgress when another attempt owns or finished it.
func (r *NotificationDeliveriesRepo) TryStart(ctx context.Context, key delivery.Key, taskID, recipient string) error {
	return r.observe("deliveries.try_start", func() error {
		// 1) Insert if missing
		_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_deliveries (kind, dedup_key, task_id, recipient, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'sending', NOW(), NOW())
	`, key.Kind, key.DedupKey, taskID, recipient)

		if err == nil {
			return nil
		}
		if !IsUniqueViolation(err) {
			return err
		}

		// 2) Row exists. A failed row is flipped back to sending by exactly one worker.
		tag, uErr := r.pool.Exec(ctx, `
		UPDATE notification_deliveries
		SET status = 'sending',
		    task_id = $3,
		    recipient = $4,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE kind = $1 AND dedup_key = $2 AND status = 'failed'
	`, key.Kind, key.DedupKey, taskID, recipient)

		if uErr != nil {
			return uErr
		}
		if tag.RowsAffected() == 1 {
			return nil
		}

		// 3) Not failed: already sent, or a send is in flight.
		var status string
		var sentAt *time.Time

		qErr := r.pool.QueryRow(ctx, `
		SELECT status, sent_at
		FROM notification_deliveries
		WHERE kind = $1 AND dedup_key = $2
	`, key.Kind, key.DedupKey).Scan(&status, &sentAt)

		if qErr != nil {
			if errors.Is(qErr, pgx.ErrNoRows) {
				// row disappeared; let caller retry
				return nil
			}
			return qErr
		}

		if sentAt != nil || status == string(delivery.StatusSent) {
			return delivery.ErrAlreadySent
		}

		return delivery.ErrInProgress
	})
}

func (r *NotificationDeliveriesRepo) MarkSent(ctx context.Context, key delivery.Key) error {
	return r.observe("deliveries.mark_sent", func() error {
		_, err := r.pool.Exec(ctx, `
		UPDATE notification_deliveries
		SET status = 'sent',
		    sent_at = NOW(),
		    last_error = NULL,
		    updated_at = NOW()
		WHERE kind = $1 AND dedup_key = $2
	`, key.Kind, key.DedupKey)
		return err
	})
}

func (r *NotificationDeliveriesRepo) MarkFailed(ctx context.Context, key delivery.Key, errMsg string) error {
	return r.observe("deliveries.mark_failed", func() error {
		_, err := r.pool.Exec(ctx, `
		UPDATE notification_deliveries
		SET status = 'failed',
		    last_error = $3,
		    updated_at = NOW()
		WHERE kind = $1 AND dedup_key = $2
	`, key.Kind, key.DedupKey, errMsg)
		return err
	})
}
