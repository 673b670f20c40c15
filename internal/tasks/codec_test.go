package tasks

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/task"
)

func TestEncodeDecode_ApplicationSubmitted(t *testing.T) {
	payload := ApplicationSubmittedPayload{
		ApplicationID: "app-123",
		JobID:         "job-456",
		JobTitle:      "Kasir",
		EmployerEmail: "owner@toko.id",
		ApplicantName: "Sari",
	}

	b, err := EncodePayload(TypeApplicationSubmitted, payload)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}

	tk := task.New(task.CreateRequest{Type: string(TypeApplicationSubmitted), Payload: b})

	decoded, err := DecodePayload(tk)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}

	p, ok := decoded.(ApplicationSubmittedPayload)
	if !ok {
		t.Fatalf("expected ApplicationSubmittedPayload, got %T", decoded)
	}

	if p.ApplicationID != payload.ApplicationID || p.EmployerEmail != payload.EmployerEmail {
		t.Fatalf("round trip mismatch: %+v", p)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(TypeApplicationSubmitted, ApplicationReviewedPayload{ApplicationID: "a1"})
	if err != ErrPayloadTypeMismatch {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestDecodePayload_UnknownType(t *testing.T) {
	_, err := DecodePayload(task.Task{Type: "job.archive", Payload: []byte(`{}`)})
	if err != ErrInvalidType {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestValidatePayload_RequiredFields(t *testing.T) {
	if err := ValidatePayload(TypeApplicationReviewed, ApplicationReviewedPayload{ApplicationID: "a1"}); err == nil {
		t.Fatalf("expected error for missing recipient and status")
	}
	if err := ValidatePayload(TypeApplicationSubmitted, &ApplicationSubmittedPayload{ApplicationID: "a", JobID: "j", EmployerEmail: "e@x.id"}); err != nil {
		t.Fatalf("pointer payload should validate: %v", err)
	}
}

func TestReviewed_BuildsDistinctKeys(t *testing.T) {
	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	p := ApplicationReviewedPayload{ApplicationID: "a1", ApplicantEmail: "s@x.id", Status: "accepted", RequestedAt: at}

	first, err := Reviewed(p, "emp-1")
	if err != nil {
		t.Fatalf("Reviewed: %v", err)
	}

	p.RequestedAt = at.Add(time.Minute)
	second, err := Reviewed(p, "emp-1")
	if err != nil {
		t.Fatalf("Reviewed: %v", err)
	}

	if *first.IdempotencyKey == *second.IdempotencyKey {
		t.Fatalf("separate reviews must not share an idempotency key")
	}
	if first.Type != string(TypeApplicationReviewed) || first.MaxAttempts != notifyMaxAttempts {
		t.Fatalf("unexpected request: %+v", first)
	}
}

func TestSubmitted_RejectsIncompletePayload(t *testing.T) {
	_, err := Submitted(ApplicationSubmittedPayload{ApplicationID: "a1"}, "seek-1")
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
