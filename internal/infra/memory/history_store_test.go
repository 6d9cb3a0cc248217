package memory

import (
	"context"
	"errors"
	"testing"

	"course-assessment-service/internal/domain"
)

func TestHistoryStoreAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore()

	_ = store.AppendAttempt(ctx, "u1", domain.QuizAttempt{ID: "a1", Score: 40})
	_ = store.AppendAttempt(ctx, "u1", domain.QuizAttempt{ID: "a2", Score: 90})
	_ = store.AppendAttempt(ctx, "u2", domain.QuizAttempt{ID: "b1"})

	attempts, err := store.Attempts(ctx, "u1")
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 2 || attempts[0].ID != "a1" || attempts[1].ID != "a2" {
		t.Fatalf("unexpected attempts: %+v", attempts)
	}

	// callers get a copy
	attempts[0].Score = 0
	again, _ := store.Attempts(ctx, "u1")
	if again[0].Score != 40 {
		t.Fatalf("stored attempt was mutated through the returned slice")
	}

	none, _ := store.Attempts(ctx, "nobody")
	if len(none) != 0 {
		t.Fatalf("expected empty history, got %d", len(none))
	}
}

func TestHistoryStoreCertificateLookup(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore()
	cert := domain.CourseCertificate{ID: "c1", UserID: "u1", VerificationCode: "SKILL-X-1"}
	_ = store.AppendCertificate(ctx, "u1", cert)

	got, err := store.CertificateByCode(ctx, "SKILL-X-1")
	if err != nil || got.ID != "c1" {
		t.Fatalf("lookup failed: %v", err)
	}
	if _, err := store.CertificateByCode(ctx, "SKILL-X-2"); !errors.Is(err, domain.ErrCertificateNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	certs, _ := store.Certificates(ctx, "u1")
	if len(certs) != 1 {
		t.Fatalf("expected one certificate, got %d", len(certs))
	}
}

func TestHistoryStoreIgnoresRepeatedAppends(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore()
	for i := 0; i < 3; i++ {
		_ = store.AppendAttempt(ctx, "u1", domain.QuizAttempt{ID: "a1", Score: 90})
		_ = store.AppendCertificate(ctx, "u1", domain.CourseCertificate{ID: "c1", VerificationCode: "SKILL-X-1"})
	}
	attempts, _ := store.Attempts(ctx, "u1")
	certs, _ := store.Certificates(ctx, "u1")
	if len(attempts) != 1 || len(certs) != 1 {
		t.Fatalf("expected one attempt and one certificate, got %d and %d", len(attempts), len(certs))
	}
}
