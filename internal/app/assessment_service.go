package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"course-assessment-service/internal/domain"
)

var errNoDocumentRenderer = errors.New("no document renderer configured")

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(key string, session *Session)
	Get(key string) (*Session, bool)
	Delete(key string)
}

// QuizRepository loads quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// DocumentRenderer renders a certificate into a downloadable document.
type DocumentRenderer interface {
	Document(certificate domain.CourseCertificate) ([]byte, error)
}

// ArtifactLinker hands out a fresh link to a certificate's archived document.
// An empty link means nothing is archived.
type ArtifactLinker interface {
	ArtifactURL(ctx context.Context, certificate domain.CourseCertificate) (string, error)
}

// SessionKey identifies the single live session a user may hold for a quiz.
func SessionKey(userID, quizID string) string {
	return userID + ":" + quizID
}

// AssessmentService contains the assessment use cases.
type AssessmentService struct {
	mu            sync.Mutex
	sessions      SessionRepository
	quizzes       QuizRepository
	history       HistoryStore
	issuer        *Issuer
	documents     DocumentRenderer
	artifacts     ArtifactLinker
	timers        TimerFactory
	recordTimeout time.Duration
}

// ServiceOption customizes an AssessmentService.
type ServiceOption func(*AssessmentService)

// WithSessionTimer sets the countdown used by new sessions.
func WithSessionTimer(timers TimerFactory) ServiceOption {
	return func(s *AssessmentService) { s.timers = timers }
}

// WithDocuments enables on-demand certificate documents.
func WithDocuments(documents DocumentRenderer) ServiceOption {
	return func(s *AssessmentService) { s.documents = documents }
}

// WithArtifacts enables links to archived certificate documents.
func WithArtifacts(artifacts ArtifactLinker) ServiceOption {
	return func(s *AssessmentService) { s.artifacts = artifacts }
}

// WithRecordTimeout bounds recording of a timer-forced submission.
func WithRecordTimeout(d time.Duration) ServiceOption {
	return func(s *AssessmentService) { s.recordTimeout = d }
}

func NewAssessmentService(sessions SessionRepository, quizzes QuizRepository, history HistoryStore, issuer *Issuer, opts ...ServiceOption) *AssessmentService {
	s := &AssessmentService{
		sessions:      sessions,
		quizzes:       quizzes,
		history:       history,
		issuer:        issuer,
		timers:        NewTickerTimer(time.Second),
		recordTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start attaches a connection to the user's running attempt for the quiz, or
// begins a new attempt. Every Start must be paired with one Abandon.
func (s *AssessmentService) Start(ctx context.Context, quizID, userID, userName string) (domain.SessionSnapshot, error) {
	key := SessionKey(userID, quizID)
	s.mu.Lock()
	snap, attached, err := s.resumeLocked(key)
	s.mu.Unlock()
	if attached || err != nil {
		return snap, err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	var session *Session
	session, err = NewSession(quiz, userID, userName,
		WithTimer(s.timers),
		WithExpiryHandler(func(attempt domain.QuizAttempt) {
			recordCtx, cancel := context.WithTimeout(context.Background(), s.recordTimeout)
			defer cancel()
			_, _ = s.record(recordCtx, session, attempt)
		}),
	)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another connection may have started the attempt while the quiz loaded
	if snap, attached, err := s.resumeLocked(key); attached || err != nil {
		return snap, err
	}
	// connections still holding a finished session carry over to the new one
	if previous, ok := s.sessions.Get(key); ok {
		session.attached = previous.Attached()
	}
	if err := session.Start(); err != nil {
		return domain.SessionSnapshot{}, err
	}
	session.Attach()
	s.sessions.Put(key, session)
	return session.Snapshot(), nil
}

// resumeLocked attaches to a running session under key. It reports
// attached=false when a new session has to be created.
func (s *AssessmentService) resumeLocked(key string) (domain.SessionSnapshot, bool, error) {
	existing, ok := s.sessions.Get(key)
	if !ok {
		return domain.SessionSnapshot{}, false, nil
	}
	if existing.State() == domain.StateInProgress {
		existing.Attach()
		return existing.Snapshot(), true, nil
	}
	if existing.Pending() {
		return domain.SessionSnapshot{}, false, domain.ErrSubmissionPending
	}
	return domain.SessionSnapshot{}, false, nil
}

// Quiz returns the definition a session for quizID would use.
func (s *AssessmentService) Quiz(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// SelectAnswer records an answer for the current question.
func (s *AssessmentService) SelectAnswer(_ context.Context, userID, quizID string, optionIndex int) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(SessionKey(userID, quizID))
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err := session.SelectAnswer(optionIndex); err != nil {
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// GoToQuestion moves the question pointer (next/previous or overview jump).
func (s *AssessmentService) GoToQuestion(_ context.Context, userID, quizID string, index int) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(SessionKey(userID, quizID))
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err := session.GoToQuestion(index); err != nil {
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// Submit ends the attempt and records it. Repeated calls return the same
// result without recording twice. A *domain.PersistenceError comes back
// together with the computed result.
func (s *AssessmentService) Submit(ctx context.Context, userID, quizID string) (domain.SubmissionResult, error) {
	session, ok := s.sessions.Get(SessionKey(userID, quizID))
	if !ok {
		return domain.SubmissionResult{}, domain.ErrSessionNotFound
	}
	attempt, first, err := session.Submit()
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if first {
		return s.record(ctx, session, attempt)
	}
	return session.Wait(ctx, attempt.ID)
}

// Reset starts a retake from the same quiz definition.
func (s *AssessmentService) Reset(_ context.Context, userID, quizID string) (domain.SessionSnapshot, error) {
	key := SessionKey(userID, quizID)
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions.Get(key)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err := session.Reset(); err != nil {
		return session.Snapshot(), err
	}
	// re-storing refreshes store-side bookkeeping for the new countdown
	s.sessions.Put(key, session)
	return session.Snapshot(), nil
}

// Snapshot returns the current view of a user's session.
func (s *AssessmentService) Snapshot(_ context.Context, userID, quizID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(SessionKey(userID, quizID))
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives session updates and the final result.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AssessmentService) Subscribe(_ context.Context, userID, quizID string) (<-chan domain.SessionUpdate, func(), error) {
	session, ok := s.sessions.Get(SessionKey(userID, quizID))
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Abandon detaches one connection. When it was the last one the timer is
// cancelled and the session dropped without recording an attempt.
func (s *AssessmentService) Abandon(_ context.Context, userID, quizID string) {
	key := SessionKey(userID, quizID)
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions.Get(key)
	if !ok || !session.Detach() {
		return
	}
	session.Abandon()
	s.sessions.Delete(key)
}

// Attempts lists the user's recorded attempts, oldest first.
func (s *AssessmentService) Attempts(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	return s.history.Attempts(ctx, userID)
}

// Certificates lists the user's certificates, oldest first.
func (s *AssessmentService) Certificates(ctx context.Context, userID string) ([]domain.CourseCertificate, error) {
	return s.history.Certificates(ctx, userID)
}

// VerifyCertificate looks a certificate up by its verification code.
func (s *AssessmentService) VerifyCertificate(ctx context.Context, code string) (domain.CourseCertificate, error) {
	return s.history.CertificateByCode(ctx, code)
}

// RenderCertificate renders the certificate document again from the stored record.
func (s *AssessmentService) RenderCertificate(ctx context.Context, code string) ([]byte, error) {
	certificate, err := s.history.CertificateByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.documents == nil {
		return nil, &domain.RenderingError{CertificateID: certificate.ID, Err: errNoDocumentRenderer}
	}
	doc, err := s.documents.Document(certificate)
	if err != nil {
		return nil, &domain.RenderingError{CertificateID: certificate.ID, Err: err}
	}
	return doc, nil
}

// ArtifactURL returns a short-lived link to the archived document of the
// certificate, or "" when documents are not archived.
func (s *AssessmentService) ArtifactURL(ctx context.Context, code string) (string, error) {
	certificate, err := s.history.CertificateByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if s.artifacts == nil {
		return "", nil
	}
	return s.artifacts.ArtifactURL(ctx, certificate)
}

func (s *AssessmentService) record(ctx context.Context, session *Session, attempt domain.QuizAttempt) (domain.SubmissionResult, error) {
	result, err := s.issuer.Record(ctx, session.Quiz(), attempt, session.UserName())
	session.Finish(attempt.ID, result, err)
	return result, err
}
