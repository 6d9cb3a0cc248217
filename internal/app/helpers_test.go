package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"course-assessment-service/internal/app"
	"course-assessment-service/internal/domain"
	"course-assessment-service/internal/infra/memory"
)

// manualTimer is driven by the test instead of the wall clock.
type manualTimer struct {
	mu    sync.Mutex
	tick  func() bool
	stops int
}

func (t *manualTimer) Start(tick func() bool) {
	t.mu.Lock()
	t.tick = tick
	t.mu.Unlock()
}

func (t *manualTimer) Stop() {
	t.mu.Lock()
	t.stops++
	t.mu.Unlock()
}

// Fire delivers one tick and reports whether the timer wants more.
func (t *manualTimer) Fire() bool {
	t.mu.Lock()
	tick := t.tick
	t.mu.Unlock()
	if tick == nil {
		return false
	}
	return tick()
}

func (t *manualTimer) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (m *manualTimers) Factory() app.TimerFactory {
	return func() app.Timer {
		m.mu.Lock()
		defer m.mu.Unlock()
		t := &manualTimer{}
		m.timers = append(m.timers, t)
		return t
	}
}

func (m *manualTimers) Last() *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return nil
	}
	return m.timers[len(m.timers)-1]
}

func (m *manualTimers) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// sampleQuiz has five questions whose correct option is always index 1.
func sampleQuiz(timeLimitMinutes int) domain.QuizDefinition {
	questions := make([]domain.Question, 5)
	for i := range questions {
		questions[i] = domain.Question{
			ID:                 fmt.Sprintf("q%d", i+1),
			Prompt:             fmt.Sprintf("Question %d", i+1),
			Options:            []string{"a", "b", "c", "d"},
			CorrectOptionIndex: 1,
		}
	}
	return domain.QuizDefinition{
		ID:               "electrical-quiz",
		CourseID:         "electrical-basics",
		CourseName:       "Electrical Work Fundamentals",
		Skill:            "Electrical Work",
		Title:            "Electrical Fundamentals Test",
		PassingScore:     70,
		TimeLimitMinutes: timeLimitMinutes,
		Questions:        questions,
	}
}

// flakyHistory fails the configured operations and delegates the rest.
type flakyHistory struct {
	*memory.HistoryStore
	failAttempts     bool
	failCertificates bool

	mu    sync.Mutex
	calls int
}

var errStoreDown = errors.New("store unavailable")

func (h *flakyHistory) AppendAttempt(ctx context.Context, userID string, attempt domain.QuizAttempt) error {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	if h.failAttempts {
		return errStoreDown
	}
	return h.HistoryStore.AppendAttempt(ctx, userID, attempt)
}

func (h *flakyHistory) AppendCertificate(ctx context.Context, userID string, certificate domain.CourseCertificate) error {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	if h.failCertificates {
		return errStoreDown
	}
	return h.HistoryStore.AppendCertificate(ctx, userID, certificate)
}

type stubRenderer struct {
	url string
	err error
}

func (r stubRenderer) Render(context.Context, domain.CourseCertificate) (string, error) {
	return r.url, r.err
}

type failingNotifier struct{}

func (failingNotifier) CertificateEarned(context.Context, domain.CourseCertificate) error {
	return errors.New("broker down")
}

type stubDocuments struct{}

func (stubDocuments) Document(certificate domain.CourseCertificate) ([]byte, error) {
	return []byte("%PDF " + certificate.VerificationCode), nil
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func newTestService(history app.HistoryStore, timers *manualTimers, opts ...app.IssuerOption) (*app.AssessmentService, *memory.Notifier) {
	notifier := memory.NewNotifier()
	loader := memory.NewStaticQuizLoader(map[string]domain.QuizDefinition{
		"electrical-quiz": sampleQuiz(10),
		"short-quiz": func() domain.QuizDefinition {
			q := sampleQuiz(1)
			q.ID = "short-quiz"
			return q
		}(),
	})
	quizzes := memory.NewQuizRepository(loader, time.Minute)
	issuer := app.NewIssuer(history, append([]app.IssuerOption{app.WithNotifier(notifier)}, opts...)...)
	service := app.NewAssessmentService(memory.NewSessionStore(), quizzes, history, issuer,
		app.WithSessionTimer(timers.Factory()),
		app.WithDocuments(stubDocuments{}),
	)
	return service, notifier
}

// lostAckHistory stores each write but reports the first one of every kind
// as failed, like a write whose acknowledgement never arrived.
type lostAckHistory struct {
	*memory.HistoryStore

	mu               sync.Mutex
	attemptCalls     int
	certificateCalls int
}

var errTimeout = errors.New("i/o timeout")

func (h *lostAckHistory) AppendAttempt(ctx context.Context, userID string, attempt domain.QuizAttempt) error {
	if err := h.HistoryStore.AppendAttempt(ctx, userID, attempt); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attemptCalls++
	if h.attemptCalls == 1 {
		return errTimeout
	}
	return nil
}

func (h *lostAckHistory) AppendCertificate(ctx context.Context, userID string, certificate domain.CourseCertificate) error {
	if err := h.HistoryStore.AppendCertificate(ctx, userID, certificate); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.certificateCalls++
	if h.certificateCalls == 1 {
		return errTimeout
	}
	return nil
}
