package notifications

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type fakeNotifier struct {
	submitted func(ctx context.Context, in ApplicationSubmittedInput) error
	reviewed  func(ctx context.Context, in ApplicationReviewedInput) error
	calls     int
}

func (f *fakeNotifier) SendApplicationSubmitted(ctx context.Context, in ApplicationSubmittedInput) error {
	f.calls++
	if f.submitted != nil {
		return f.submitted(ctx, in)
	}
	return nil
}

func (f *fakeNotifier) SendApplicationReviewed(ctx context.Context, in ApplicationReviewedInput) error {
	f.calls++
	if f.reviewed != nil {
		return f.reviewed(ctx, in)
	}
	return nil
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	boom := errors.New("smtp down")
	inner := &fakeNotifier{
		submitted: func(context.Context, ApplicationSubmittedInput) error { return boom },
		reviewed:  func(context.Context, ApplicationReviewedInput) error { return boom },
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})
	n.now = func() time.Time { return now }

	ctx := context.Background()
	_ = n.SendApplicationSubmitted(ctx, ApplicationSubmittedInput{})
	_ = n.SendApplicationReviewed(ctx, ApplicationReviewedInput{})

	if n.State() != StateOpen {
		t.Fatalf("state = %s, want open (failures are shared across kinds)", n.State())
	}

	if err := n.SendApplicationSubmitted(ctx, ApplicationSubmittedInput{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner called %d times while open", inner.calls)
	}

	// cooldown elapsed: one trial call, success closes the circuit
	now = now.Add(2 * time.Minute)
	inner.submitted = nil
	if err := n.SendApplicationSubmitted(ctx, ApplicationSubmittedInput{}); err != nil {
		t.Fatalf("half-open trial: %v", err)
	}
	if n.State() != StateClosed {
		t.Fatalf("state = %s, want closed", n.State())
	}
}

func TestProtectedNotifier_HalfOpenFailureReopens(t *testing.T) {
	inner := &fakeNotifier{
		reviewed: func(context.Context, ApplicationReviewedInput) error { return errors.New("x") },
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Second})
	n.now = func() time.Time { return now }

	_ = n.SendApplicationReviewed(context.Background(), ApplicationReviewedInput{})
	now = now.Add(2 * time.Second)
	_ = n.SendApplicationReviewed(context.Background(), ApplicationReviewedInput{})

	if n.State() != StateOpen {
		t.Fatalf("state = %s, want open", n.State())
	}
}

func TestProtectedNotifier_Timeout(t *testing.T) {
	inner := &fakeNotifier{
		submitted: func(ctx context.Context, _ ApplicationSubmittedInput) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{Timeout: 10 * time.Millisecond})

	err := n.SendApplicationSubmitted(context.Background(), ApplicationSubmittedInput{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := n.SendApplicationReviewed(context.Background(), ApplicationReviewedInput{
		ApplicantEmail: "sari@example.com",
		Status:         "accepted",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), `"status":"accepted"`) {
		t.Fatalf("log line missing status: %s", buf.String())
	}

	n.Fail = true
	if err := n.SendApplicationSubmitted(context.Background(), ApplicationSubmittedInput{}); !errors.Is(err, ErrProviderDown) {
		t.Fatalf("got %v, want ErrProviderDown", err)
	}
}
