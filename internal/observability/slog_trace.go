package observability

import (
	"context"
	"log/slog"

	"github.com/geocoder89/storejobs/internal/actorctx"
	"go.opentelemetry.io/otel/trace"
)

// TraceHandler decorates records written with a request context: the span
// ids when tracing is on, and the signed-in user so board activity can be
// followed per employer or applicant.
type TraceHandler struct {
	next slog.Handler
}

func NewTraceHandler(next slog.Handler) *TraceHandler {
	return &TraceHandler{next: next}
}

func (h *TraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.next.Handle(ctx, r)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if actor := actorctx.ActorFrom(ctx); actor.IsAuthenticated() {
		r.AddAttrs(
			slog.String("user_id", actor.ID),
			slog.String("role", string(actor.Role)),
		)
	}

	return h.next.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{next: h.next.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{next: h.next.WithGroup(name)}
}
