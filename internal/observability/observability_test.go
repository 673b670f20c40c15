package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/storejobs/internal/actorctx"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/geocoder89/storejobs/internal/policy"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace"
)

func TestNewLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "dev")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.DebugContext(ctx, "hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if rec["trace_id"] != traceID.String() || rec["span_id"] != spanID.String() {
		t.Fatalf("trace attrs missing: %v", rec)
	}
}

func TestNewLogger_ProdSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "prod").Debug("noise")

	if buf.Len() != 0 {
		t.Fatalf("debug should be dropped outside dev: %s", buf.String())
	}
}

func TestNewLogger_AddsActor(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := actorctx.WithActor(context.Background(), policy.Actor{ID: "emp-1", Role: user.RoleEmployer})
	log.InfoContext(ctx, "application.reviewed")
	log.InfoContext(context.Background(), "anonymous")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %s", len(lines), buf.String())
	}

	var signedIn, anon map[string]any
	_ = json.Unmarshal(lines[0], &signedIn)
	_ = json.Unmarshal(lines[1], &anon)

	if signedIn["user_id"] != "emp-1" || signedIn["role"] != "employer" {
		t.Fatalf("actor attrs missing: %v", signedIn)
	}
	if _, ok := anon["user_id"]; ok {
		t.Fatalf("anonymous record carries a user: %v", anon)
	}
}

func TestObserveDB_LabelsByEntity(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("applications.create_tx.insert", func() error {
		return &pgconn.PgError{Code: "23505"}
	})
	_ = p.ObserveDB("jobs.create", func() error { return &pgconn.PgError{Code: "23503"} })
	_ = p.ObserveDB("jobs.list", func() error { return errors.New("context deadline exceeded") })
	_ = p.ObserveDB("jobs.get_by_id", func() error { return pgx.ErrNoRows })
	_ = p.ObserveDB("jobs.list", func() error { return nil })
	p.DBError("applications.list", "rows_err")

	tests := []struct {
		entity, op, class string
	}{
		{"applications", "create_tx.insert", "unique_violation"},
		{"jobs", "create", "foreign_key_violation"},
		{"jobs", "list", "timeout"},
		{"applications", "list", "rows_err"},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues(tt.entity, tt.op, tt.class)); got != 1 {
			t.Fatalf("%s/%s/%s = %v, want 1", tt.entity, tt.op, tt.class, got)
		}
	}

	// a miss is not an error
	if got := testutil.CollectAndCount(p.DbErrorsTotal); got != len(tests) {
		t.Fatalf("error series = %d, want %d", got, len(tests))
	}
	if got := testutil.CollectAndCount(p.DbQueryDuration); got != 5 {
		t.Fatalf("duration series = %d, want 5", got)
	}
}

func TestSplitOp(t *testing.T) {
	if e, a := splitOp("applications.update_review_tx.update"); e != "applications" || a != "update_review_tx.update" {
		t.Fatalf("splitOp = %q %q", e, a)
	}
	if e, a := splitOp("ping"); e != "ping" || a != "unknown" {
		t.Fatalf("splitOp(no dot) = %q %q", e, a)
	}
}

func TestNilPromHelpersAreSafe(t *testing.T) {
	var p *Prom
	p.ApplicationEvent("submitted", "pending")
	p.CacheResult("jobs_list", "hit")
	p.DBError("jobs.list", "scan")
}

func TestTaskMetricsSnapshot_PerType(t *testing.T) {
	m := NewTaskMetrics()
	m.IncClaimed("application.submitted")
	m.IncClaimed("application.reviewed")
	m.IncDone("application.submitted")
	m.IncRetried("application.reviewed")
	m.IncDeadLettered("application.reviewed")
	m.ObserveDuration("application.submitted", 10*time.Millisecond)
	m.ObserveDuration("application.reviewed", 30*time.Millisecond)

	s := m.Snapshot()
	if s.Claimed != 2 || s.Done != 1 || s.Retried != 1 || s.Failed != 1 || s.DeadLettered != 1 {
		t.Fatalf("totals = %+v", s.TaskCounts)
	}
	if s.AverageDuration != 20*time.Millisecond || s.MaxDuration != 30*time.Millisecond {
		t.Fatalf("durations = %v/%v", s.AverageDuration, s.MaxDuration)
	}

	if got := s.Types(); len(got) != 2 || got[0] != "application.reviewed" {
		t.Fatalf("types = %v", got)
	}
	sub := s.ByType["application.submitted"]
	if sub.Done != 1 || sub.Retried != 0 || sub.AverageDuration != 10*time.Millisecond {
		t.Fatalf("submitted row = %+v", sub)
	}
}

func TestNewResource_DescribesDeployment(t *testing.T) {
	res, err := newResource(context.Background(), TracerConfig{
		ServiceName:  "storejobs-api",
		Environment:  "staging",
		StoreBackend: "memory",
	})
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}

	got := map[string]string{}
	for _, kv := range res.Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	if got["service.name"] != "storejobs-api" || got["deployment.environment"] != "staging" || got["storejobs.store_backend"] != "memory" {
		t.Fatalf("resource attrs = %v", got)
	}
}

func TestSampler(t *testing.T) {
	for _, ratio := range []float64{0, 1, 2} {
		if d := sampler(ratio).Description(); !strings.HasPrefix(d, "ParentBased{root:AlwaysOnSampler") {
			t.Fatalf("sampler(%v) = %s", ratio, d)
		}
	}
	if d := sampler(0.25).Description(); !strings.HasPrefix(d, "ParentBased{root:TraceIDRatioBased") {
		t.Fatalf("sampler(0.25) = %s", d)
	}
}
