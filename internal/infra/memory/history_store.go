package memory

import (
	"context"
	"sync"

	"course-assessment-service/internal/domain"
)

// HistoryStore keeps attempts and certificates per user in process memory.
type HistoryStore struct {
	mu           sync.RWMutex
	attempts     map[string][]domain.QuizAttempt
	certificates map[string][]domain.CourseCertificate
	byCode       map[string]domain.CourseCertificate
	seen         map[string]struct{}
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		attempts:     make(map[string][]domain.QuizAttempt),
		certificates: make(map[string][]domain.CourseCertificate),
		byCode:       make(map[string]domain.CourseCertificate),
		seen:         make(map[string]struct{}),
	}
}

// AppendAttempt ignores an attempt whose id is already stored, so writes can be retried.
func (s *HistoryStore) AppendAttempt(_ context.Context, userID string, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.markLocked("attempt:" + attempt.ID) {
		return nil
	}
	s.attempts[userID] = append(s.attempts[userID], attempt)
	return nil
}

func (s *HistoryStore) AppendCertificate(_ context.Context, userID string, certificate domain.CourseCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.markLocked("certificate:" + certificate.ID) {
		return nil
	}
	s.certificates[userID] = append(s.certificates[userID], certificate)
	s.byCode[certificate.VerificationCode] = certificate
	return nil
}

func (s *HistoryStore) Attempts(_ context.Context, userID string) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, len(s.attempts[userID]))
	copy(out, s.attempts[userID])
	return out, nil
}

func (s *HistoryStore) Certificates(_ context.Context, userID string) ([]domain.CourseCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CourseCertificate, len(s.certificates[userID]))
	copy(out, s.certificates[userID])
	return out, nil
}

func (s *HistoryStore) CertificateByCode(_ context.Context, code string) (domain.CourseCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if certificate, ok := s.byCode[code]; ok {
		return certificate, nil
	}
	return domain.CourseCertificate{}, domain.ErrCertificateNotFound
}

func (s *HistoryStore) markLocked(key string) bool {
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}
