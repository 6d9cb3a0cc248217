package redis

import (
	"context"
	"testing"
	"time"

	"course-assessment-service/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	session, err := app.NewSession(sampleQuiz(), "u1", "Alice")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	store.Put(app.SessionKey("u1", "quiz-1"), session)
	if !mr.Exists("assessment:session:u1:quiz-1") {
		t.Fatalf("expected redis key to be set")
	}
	// five minute countdown plus one minute of grace
	if ttl := mr.TTL("assessment:session:u1:quiz-1"); ttl != 6*time.Minute {
		t.Fatalf("expected marker to expire with the countdown, got %v", ttl)
	}
	if active, err := store.Active(context.Background(), app.SessionKey("u1", "quiz-1")); err != nil || !active {
		t.Fatalf("expected session to be reported active, err=%v", err)
	}
	if got, ok := store.Get(app.SessionKey("u1", "quiz-1")); !ok || got != session {
		t.Fatalf("expected local session")
	}

	store.Delete(app.SessionKey("u1", "quiz-1"))
	if mr.Exists("assessment:session:u1:quiz-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if active, _ := store.Active(context.Background(), app.SessionKey("u1", "quiz-1")); active {
		t.Fatalf("expected no active session after delete")
	}
}
