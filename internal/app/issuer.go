package app

import (
	"context"
	"log"
	"time"

	"course-assessment-service/internal/domain"
	"course-assessment-service/internal/metrics"
	"github.com/google/uuid"
)

// HistoryStore is the per-user, append-only record of attempts and certificates
// (in-memory, Redis, Postgres).
type HistoryStore interface {
	AppendAttempt(ctx context.Context, userID string, attempt domain.QuizAttempt) error
	AppendCertificate(ctx context.Context, userID string, certificate domain.CourseCertificate) error
	Attempts(ctx context.Context, userID string) ([]domain.QuizAttempt, error)
	Certificates(ctx context.Context, userID string) ([]domain.CourseCertificate, error)
	CertificateByCode(ctx context.Context, code string) (domain.CourseCertificate, error)
}

// CertificateRenderer produces the visual artifact for a certificate and
// returns a reference (URL) to it.
type CertificateRenderer interface {
	Render(ctx context.Context, certificate domain.CourseCertificate) (string, error)
}

// CertificateNotifier tells the surrounding application a certificate was earned.
type CertificateNotifier interface {
	CertificateEarned(ctx context.Context, certificate domain.CourseCertificate) error
}

// Issuer records submitted attempts and issues certificates for passing ones.
type Issuer struct {
	history       HistoryStore
	renderer      CertificateRenderer
	notifier      CertificateNotifier
	codes         *VerificationCodes
	now           func() time.Time
	newID         func() string
	retries       int
	retryInterval time.Duration
}

// IssuerOption customizes an Issuer.
type IssuerOption func(*Issuer)

func WithRenderer(r CertificateRenderer) IssuerOption {
	return func(i *Issuer) { i.renderer = r }
}

func WithNotifier(n CertificateNotifier) IssuerOption {
	return func(i *Issuer) { i.notifier = n }
}

// WithRetry retries failed history writes up to retries extra times.
func WithRetry(retries int, interval time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.retries = retries
		i.retryInterval = interval
	}
}

func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func WithVerificationCodes(codes *VerificationCodes) IssuerOption {
	return func(i *Issuer) { i.codes = codes }
}

func NewIssuer(history HistoryStore, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		history: history,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.codes == nil {
		i.codes = NewVerificationCodes(i.now)
	}
	return i
}

// IssueCertificate synthesizes the certificate record for a passed attempt.
// It has no side effects besides consuming a verification code.
func (i *Issuer) IssueCertificate(attempt domain.QuizAttempt, quiz domain.QuizDefinition, userName string) domain.CourseCertificate {
	courseID := quiz.CourseID
	if courseID == "" {
		courseID = quiz.ID
	}
	return domain.CourseCertificate{
		ID:               i.newID(),
		QuizID:           quiz.ID,
		CourseID:         courseID,
		UserID:           attempt.UserID,
		UserName:         userName,
		CourseName:       quiz.CourseName,
		Skill:            quiz.Skill,
		Score:            attempt.Score,
		IssuedAt:         i.now(),
		VerificationCode: i.codes.Next(courseID),
	}
}

// Record runs the side effects of a submission: the attempt is always
// appended, and a passing attempt gets a rendered, stored and announced
// certificate. A *domain.PersistenceError is returned alongside the computed
// result when history could not be written; rendering and notification
// failures are logged and never undo a stored certificate.
func (i *Issuer) Record(ctx context.Context, quiz domain.QuizDefinition, attempt domain.QuizAttempt, userName string) (domain.SubmissionResult, error) {
	result := domain.SubmissionResult{Attempt: attempt}
	metrics.AttemptsRecorded.WithLabelValues(outcomeLabel(attempt.Passed)).Inc()

	err := i.persist(ctx, func(ctx context.Context) error {
		return i.history.AppendAttempt(ctx, attempt.UserID, attempt)
	})
	if err != nil {
		return i.persistenceFailure(result, "attempt", attempt.UserID, err)
	}
	if !attempt.Passed {
		return result, nil
	}

	certificate := i.IssueCertificate(attempt, quiz, userName)
	if i.renderer != nil {
		url, err := i.renderer.Render(ctx, certificate)
		if err != nil {
			rerr := &domain.RenderingError{CertificateID: certificate.ID, Err: err}
			metrics.RenderingFailures.Inc()
			log.Printf("certificate %s for user %s stored without artifact: %v", certificate.VerificationCode, attempt.UserID, rerr)
		} else {
			certificate.CertificateImageURL = url
		}
	}

	err = i.persist(ctx, func(ctx context.Context) error {
		return i.history.AppendCertificate(ctx, attempt.UserID, certificate)
	})
	if err != nil {
		return i.persistenceFailure(result, "certificate", attempt.UserID, err)
	}
	result.Certificate = &certificate
	metrics.CertificatesIssued.WithLabelValues(quiz.CourseID).Inc()

	if i.notifier != nil {
		if err := i.notifier.CertificateEarned(ctx, certificate); err != nil {
			metrics.NotificationFailures.Inc()
			log.Printf("certificate-earned notification for %s (user %s) not delivered: %v", certificate.VerificationCode, attempt.UserID, err)
		}
	}
	return result, nil
}

func (i *Issuer) persist(ctx context.Context, write func(context.Context) error) error {
	var err error
	for try := 0; try <= i.retries; try++ {
		if err = write(ctx); err == nil {
			return nil
		}
		if try == i.retries {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(i.retryInterval):
		}
	}
	return err
}

func (i *Issuer) persistenceFailure(result domain.SubmissionResult, op, userID string, err error) (domain.SubmissionResult, error) {
	perr := &domain.PersistenceError{Op: op, UserID: userID, Err: err}
	metrics.PersistenceFailures.WithLabelValues(op).Inc()
	log.Printf("result for attempt %s computed but not saved: %v", result.Attempt.ID, perr)
	result.SaveError = "your result was computed but could not be saved"
	return result, perr
}

func outcomeLabel(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
