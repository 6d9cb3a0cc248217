package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"course-assessment-service/internal/app"
	"course-assessment-service/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions own a live timer, so they stay in the local map; Redis holds a
// liveness marker per user and quiz that other instances and operators can see.
// The marker expires when the session's countdown would, plus grace.
type SessionStore struct {
	client   *redis.Client
	grace    time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

// NewSessionStore returns a store whose markers outlive the countdown by grace.
func NewSessionStore(client *redis.Client, grace time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		grace:    grace,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(key string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if previous, ok := s.sessions[key]; ok && previous != session {
		previous.Abandon()
	} else if !ok {
		metrics.ActiveSessions.Inc()
	}
	s.sessions[key] = session
	// best-effort liveness marker
	snap := session.Snapshot()
	ttl := time.Duration(snap.RemainingSeconds)*time.Second + s.grace
	if err := s.client.Set(context.Background(), s.key(key), snap.QuizID, ttl).Err(); err != nil {
		log.Printf("mark session %s: %v", key, err)
	}
}

func (s *SessionStore) Get(key string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; !ok {
		return
	}
	delete(s.sessions, key)
	metrics.ActiveSessions.Dec()
	_ = s.client.Del(context.Background(), s.key(key)).Err()
}

// Active reports whether any instance holds a live session under key.
func (s *SessionStore) Active(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SessionStore) key(key string) string {
	return "assessment:session:" + key
}
