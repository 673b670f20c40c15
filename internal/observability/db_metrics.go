package observability

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SlowQuery is the latency above which a store call is logged.
var SlowQuery = 250 * time.Millisecond

// splitOp turns "applications.update_review_tx.update" into the table-level
// entity ("applications") and the rest of the logical op.
func splitOp(op string) (entity, action string) {
	entity, action, ok := strings.Cut(op, ".")
	if !ok {
		return op, "unknown"
	}
	return entity, action
}

// ObserveDB times one logical store call and classifies its failure.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	entity, action := splitOp(op)
	status := "ok"

	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		// unknown or hidden ids are an answer, not a failure
		status = "not_found"
	default:
		status = "error"
		p.DbErrorsTotal.WithLabelValues(entity, action, classifyDBErr(err)).Inc()
	}
	p.DbQueryDuration.WithLabelValues(entity, action, status).Observe(elapsed.Seconds())

	if elapsed > SlowQuery {
		slog.Default().Warn("db.slow_query", "entity", entity, "op", action, "elapsed_ms", elapsed.Milliseconds())
	}
	return err
}

// DBError counts a failure noticed outside ObserveDB, such as rows.Err after a scan loop.
func (p *Prom) DBError(op, class string) {
	if p == nil {
		return
	}
	entity, action := splitOp(op)
	p.DbErrorsTotal.WithLabelValues(entity, action, class).Inc()
}

// classifyDBErr names the constraint families the board's schema relies on:
// the one-application-per-job unique index, the job and category foreign
// keys, and the salary and status checks.
func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23503":
			return "foreign_key_violation"
		case "23514":
			return "check_violation"
		case "22P02":
			return "invalid_text"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "unknown"
	}
}
