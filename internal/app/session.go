package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"course-assessment-service/internal/domain"
	"github.com/google/uuid"
)

// Session is a single user's attempt at a quiz. It moves
// not_started -> in_progress -> submitted and only goes back through Reset.
type Session struct {
	quiz     domain.QuizDefinition
	userID   string
	userName string
	now      func() time.Time
	newID    func() string
	timers   TimerFactory
	onExpire func(domain.QuizAttempt)

	mu          sync.Mutex
	state       domain.SessionState
	current     int
	answers     []int
	remaining   int
	timer       Timer
	attempt     *domain.QuizAttempt
	outcome     *outcome
	subscribers map[chan domain.SessionUpdate]struct{}
	attached    int
}

// outcome holds what recording a submitted attempt produced.
type outcome struct {
	attemptID string
	done      chan struct{}
	result    domain.SubmissionResult
	err       error
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithClock overrides time.Now, mainly for deterministic tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator overrides attempt id generation.
func WithIDGenerator(newID func() string) SessionOption {
	return func(s *Session) { s.newID = newID }
}

// WithTimer sets the countdown implementation. Defaults to a one-second ticker.
func WithTimer(timers TimerFactory) SessionOption {
	return func(s *Session) { s.timers = timers }
}

// WithExpiryHandler registers the callback run, outside the session lock,
// after the countdown forced a submission.
func WithExpiryHandler(fn func(domain.QuizAttempt)) SessionOption {
	return func(s *Session) { s.onExpire = fn }
}

// NewSession builds a not_started session for a validated quiz.
func NewSession(quiz domain.QuizDefinition, userID, userName string, opts ...SessionOption) (*Session, error) {
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		quiz:        quiz,
		userID:      userID,
		userName:    userName,
		now:         time.Now,
		newID:       uuid.NewString,
		timers:      NewTickerTimer(time.Second),
		state:       domain.StateNotStarted,
		subscribers: make(map[chan domain.SessionUpdate]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()
	return s, nil
}

// Quiz returns the definition the session was built from.
func (s *Session) Quiz() domain.QuizDefinition { return s.quiz }

// UserName returns the display name used on certificates.
func (s *Session) UserName() string { return s.userName }

// Start moves a not_started session to in_progress and registers its timer.
// Starting a running session is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateInProgress:
		return nil
	case domain.StateSubmitted:
		return domain.ErrAlreadySubmitted
	}
	s.startLocked()
	return nil
}

// SelectAnswer records optionIndex for the current question without moving on.
func (s *Session) SelectAnswer(optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateInProgress {
		return domain.ErrNotInProgress
	}
	options := s.quiz.Questions[s.current].Options
	if optionIndex < 0 || optionIndex >= len(options) {
		return fmt.Errorf("%w: option %d of %d", domain.ErrInvalidInput, optionIndex, len(options))
	}
	s.answers[s.current] = optionIndex
	s.broadcastLocked(nil)
	return nil
}

// GoToQuestion jumps to any question; answering order is not enforced.
func (s *Session) GoToQuestion(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateInProgress {
		return domain.ErrNotInProgress
	}
	if index < 0 || index >= len(s.quiz.Questions) {
		return fmt.Errorf("%w: question %d of %d", domain.ErrInvalidInput, index, len(s.quiz.Questions))
	}
	s.current = index
	s.broadcastLocked(nil)
	return nil
}

// Tick consumes one second. The tick that reaches zero submits the session
// before returning and reports expired=true; the expiry handler then runs.
func (s *Session) Tick() (domain.QuizAttempt, bool) {
	s.mu.Lock()
	attempt, expired := s.tickLocked()
	handler := s.onExpire
	s.mu.Unlock()

	if expired && handler != nil {
		handler(attempt)
	}
	return attempt, expired
}

// Submit finishes the session and scores it. Only the first call performs
// the transition (first=true); later calls return the same attempt.
func (s *Session) Submit() (attempt domain.QuizAttempt, first bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateNotStarted:
		return domain.QuizAttempt{}, false, domain.ErrNotInProgress
	case domain.StateSubmitted:
		return *s.attempt, false, nil
	}
	return s.submitLocked(), true, nil
}

// Reset discards the attempt and starts a fresh one from the same quiz.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome != nil && !s.outcome.finished() {
		return domain.ErrSubmissionPending
	}
	s.stopTimerLocked()
	s.resetLocked()
	s.startLocked()
	return nil
}

// Abandon cancels the timer without producing an attempt. Used on teardown.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

// Attach registers one more connection driving the session.
func (s *Session) Attach() {
	s.mu.Lock()
	s.attached++
	s.mu.Unlock()
}

// Detach releases a connection and reports whether none are left.
func (s *Session) Detach() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached > 0 {
		s.attached--
	}
	return s.attached == 0
}

// Attached reports how many connections drive the session.
func (s *Session) Attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// Finish records the outcome of persisting attemptID and wakes any waiters.
func (s *Session) Finish(attemptID string, result domain.SubmissionResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.outcome
	if o == nil || o.attemptID != attemptID || o.finished() {
		return
	}
	o.result = result
	o.err = err
	close(o.done)
	s.broadcastLocked(&result)
}

// Wait blocks until the outcome for attemptID has been recorded.
func (s *Session) Wait(ctx context.Context, attemptID string) (domain.SubmissionResult, error) {
	s.mu.Lock()
	o := s.outcome
	s.mu.Unlock()

	if o == nil || o.attemptID != attemptID {
		return domain.SubmissionResult{}, domain.ErrSessionNotFound
	}
	select {
	case <-o.done:
		return o.result, o.err
	case <-ctx.Done():
		return domain.SubmissionResult{}, ctx.Err()
	}
}

// Pending reports whether a submitted attempt is still being recorded.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome != nil && !s.outcome.finished()
}

// Snapshot returns the presentation view of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State reports the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel of updates starting with the current snapshot.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionUpdate, func()) {
	ch := make(chan domain.SessionUpdate, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// ch is empty, so this cannot block while the lock is held
	ch <- domain.SessionUpdate{Snapshot: s.snapshotLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) resetLocked() {
	s.state = domain.StateNotStarted
	s.current = 0
	s.answers = make([]int, len(s.quiz.Questions))
	for i := range s.answers {
		s.answers[i] = domain.Unanswered
	}
	s.remaining = s.quiz.TimeLimitSeconds()
	s.attempt = nil
	s.outcome = nil
}

func (s *Session) startLocked() {
	s.state = domain.StateInProgress
	timer := s.timers()
	s.timer = timer
	timer.Start(func() bool { return s.timerTick(timer) })
	s.broadcastLocked(nil)
}

// timerTick ignores ticks from a timer that no longer owns the session,
// which happens when a late tick races Stop or a Reset.
func (s *Session) timerTick(owner Timer) bool {
	s.mu.Lock()
	if s.timer != owner {
		s.mu.Unlock()
		return false
	}
	attempt, expired := s.tickLocked()
	handler := s.onExpire
	s.mu.Unlock()

	if expired && handler != nil {
		handler(attempt)
	}
	return !expired
}

func (s *Session) tickLocked() (domain.QuizAttempt, bool) {
	if s.state != domain.StateInProgress {
		return domain.QuizAttempt{}, false
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		return s.submitLocked(), true
	}
	s.broadcastLocked(nil)
	return domain.QuizAttempt{}, false
}

func (s *Session) submitLocked() domain.QuizAttempt {
	s.state = domain.StateSubmitted
	s.stopTimerLocked()

	answers := make([]int, len(s.answers))
	copy(answers, s.answers)
	score, passed := Score(s.quiz, answers)
	attempt := domain.QuizAttempt{
		ID:               s.newID(),
		QuizID:           s.quiz.ID,
		CourseID:         s.quiz.CourseID,
		UserID:           s.userID,
		Answers:          answers,
		Score:            score,
		Passed:           passed,
		CompletedAt:      s.now(),
		TimeSpentSeconds: s.quiz.TimeLimitSeconds() - s.remaining,
	}
	s.attempt = &attempt
	s.outcome = &outcome{attemptID: attempt.ID, done: make(chan struct{})}
	s.broadcastLocked(nil)
	return attempt
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	answers := make([]int, len(s.answers))
	copy(answers, s.answers)
	answered := 0
	for _, a := range answers {
		if a != domain.Unanswered {
			answered++
		}
	}
	return domain.SessionSnapshot{
		QuizID:               s.quiz.ID,
		UserID:               s.userID,
		State:                s.state,
		CurrentQuestionIndex: s.current,
		TotalQuestions:       len(s.quiz.Questions),
		SelectedAnswers:      answers,
		AnsweredCount:        answered,
		RemainingSeconds:     s.remaining,
	}
}

func (s *Session) broadcastLocked(result *domain.SubmissionResult) {
	update := domain.SessionUpdate{Snapshot: s.snapshotLocked(), Result: result}
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// Drop the oldest queued update so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

func (o *outcome) finished() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}
