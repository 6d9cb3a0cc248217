package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-assessment-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestHistoryStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewHistoryStore(newClient(mr))
	completed := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	for i, score := range []int{40, 100} {
		attempt := domain.QuizAttempt{ID: string(rune('a' + i)), QuizID: "quiz-1", UserID: "u1", Answers: []int{1, -1}, Score: score, CompletedAt: completed}
		if err := store.AppendAttempt(ctx, "u1", attempt); err != nil {
			t.Fatalf("append attempt: %v", err)
		}
	}
	attempts, err := store.Attempts(ctx, "u1")
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 2 || attempts[0].Score != 40 || attempts[1].Score != 100 {
		t.Fatalf("unexpected attempts: %+v", attempts)
	}
	if attempts[0].Answers[1] != domain.Unanswered || !attempts[0].CompletedAt.Equal(completed) {
		t.Fatalf("attempt did not survive encoding: %+v", attempts[0])
	}

	cert := domain.CourseCertificate{ID: "c1", UserID: "u1", Score: 100, VerificationCode: "SKILL-COURSE-1-ABC"}
	if err := store.AppendCertificate(ctx, "u1", cert); err != nil {
		t.Fatalf("append certificate: %v", err)
	}
	if !mr.Exists("history:u1:certificates") || !mr.Exists("certificates:codes") {
		t.Fatalf("expected certificate keys")
	}
	certs, _ := store.Certificates(ctx, "u1")
	if len(certs) != 1 || certs[0].ID != "c1" {
		t.Fatalf("unexpected certificates: %+v", certs)
	}
	found, err := store.CertificateByCode(ctx, "SKILL-COURSE-1-ABC")
	if err != nil || found.ID != "c1" {
		t.Fatalf("lookup failed: %v", err)
	}
	if _, err := store.CertificateByCode(ctx, "missing"); !errors.Is(err, domain.ErrCertificateNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHistoryStoreReportsOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	store := NewHistoryStore(newClient(mr))
	mr.Close()

	if err := store.AppendAttempt(context.Background(), "u1", domain.QuizAttempt{ID: "a"}); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestHistoryStoreIgnoresRepeatedAppends(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewHistoryStore(newClient(mr))
	attempt := domain.QuizAttempt{ID: "a1", QuizID: "quiz-1", UserID: "u1", Score: 90}
	cert := domain.CourseCertificate{ID: "c1", UserID: "u1", VerificationCode: "SKILL-X-1"}
	for i := 0; i < 2; i++ {
		if err := store.AppendAttempt(ctx, "u1", attempt); err != nil {
			t.Fatalf("append attempt: %v", err)
		}
		if err := store.AppendCertificate(ctx, "u1", cert); err != nil {
			t.Fatalf("append certificate: %v", err)
		}
	}

	attempts, _ := store.Attempts(ctx, "u1")
	certs, _ := store.Certificates(ctx, "u1")
	if len(attempts) != 1 || len(certs) != 1 {
		t.Fatalf("expected one attempt and one certificate, got %d and %d", len(attempts), len(certs))
	}
	if ok, _ := mr.SIsMember("history:u1:ids", "attempt:a1"); !ok {
		t.Fatalf("expected the attempt id to be tracked")
	}
}
