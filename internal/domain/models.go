package domain

import (
	"fmt"
	"time"
)

// Unanswered marks an answer slot the user has not filled yet.
const Unanswered = -1

// SessionState enumerates the assessment session lifecycle.
type SessionState string

const (
	StateNotStarted SessionState = "not_started"
	StateInProgress SessionState = "in_progress"
	StateSubmitted  SessionState = "submitted"
)

// Question models a multiple-choice question with a single correct option.
type Question struct {
	ID                 string   `json:"id" yaml:"id"`
	Prompt             string   `json:"prompt" yaml:"prompt"`
	Options            []string `json:"options" yaml:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex" yaml:"correctOptionIndex"`
	Explanation        string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// QuizDefinition is the immutable quiz content for an attempt, plus the
// course metadata copied onto issued certificates.
type QuizDefinition struct {
	ID               string     `json:"id" yaml:"id"`
	CourseID         string     `json:"courseId" yaml:"courseId"`
	CourseName       string     `json:"courseName" yaml:"courseName"`
	Skill            string     `json:"skill" yaml:"skill"`
	Title            string     `json:"title" yaml:"title"`
	Description      string     `json:"description" yaml:"description"`
	PassingScore     int        `json:"passingScore" yaml:"passingScore"`
	TimeLimitMinutes int        `json:"timeLimitMinutes" yaml:"timeLimitMinutes"`
	Questions        []Question `json:"questions" yaml:"questions"`
}

// TimeLimitSeconds is the countdown start value for a session.
func (q QuizDefinition) TimeLimitSeconds() int {
	return q.TimeLimitMinutes * 60
}

// Validate checks the structural invariants every session relies on.
func (q QuizDefinition) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuiz)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %s has no questions", ErrInvalidQuiz, q.ID)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("%w: quiz %s passing score %d out of range", ErrInvalidQuiz, q.ID, q.PassingScore)
	}
	if q.TimeLimitMinutes <= 0 {
		return fmt.Errorf("%w: quiz %s time limit must be positive", ErrInvalidQuiz, q.ID)
	}
	for i, question := range q.Questions {
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: question %d of quiz %s needs at least 2 options", ErrInvalidQuiz, i, q.ID)
		}
		if question.CorrectOptionIndex < 0 || question.CorrectOptionIndex >= len(question.Options) {
			return fmt.Errorf("%w: question %d of quiz %s has invalid correct option", ErrInvalidQuiz, i, q.ID)
		}
	}
	return nil
}

// QuizAttempt is a finished, scored attempt. Immutable once recorded.
type QuizAttempt struct {
	ID               string    `json:"id"`
	QuizID           string    `json:"quizId"`
	CourseID         string    `json:"courseId"`
	UserID           string    `json:"userId"`
	Answers          []int     `json:"answers"`
	Score            int       `json:"score"`
	Passed           bool      `json:"passed"`
	CompletedAt      time.Time `json:"completedAt"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
}

// CourseCertificate is issued for a passed attempt. Immutable once recorded.
type CourseCertificate struct {
	ID                  string    `json:"id"`
	QuizID              string    `json:"quizId"`
	CourseID            string    `json:"courseId"`
	UserID              string    `json:"userId"`
	UserName            string    `json:"userName"`
	CourseName          string    `json:"courseName"`
	Skill               string    `json:"skill"`
	Score               int       `json:"score"`
	IssuedAt            time.Time `json:"issuedAt"`
	VerificationCode    string    `json:"verificationCode"`
	CertificateImageURL string    `json:"certificateImageUrl,omitempty"`
}

// SessionSnapshot is the presentation view of an in-flight session.
type SessionSnapshot struct {
	QuizID               string       `json:"quizId"`
	UserID               string       `json:"userId"`
	State                SessionState `json:"state"`
	CurrentQuestionIndex int          `json:"currentQuestionIndex"`
	TotalQuestions       int          `json:"totalQuestions"`
	SelectedAnswers      []int        `json:"selectedAnswers"`
	AnsweredCount        int          `json:"answeredCount"`
	RemainingSeconds     int          `json:"remainingSeconds"`
}

// SubmissionResult is what a submission produced. Certificate is nil for
// failed attempts and when the certificate could not be saved.
type SubmissionResult struct {
	Attempt     QuizAttempt        `json:"attempt"`
	Certificate *CourseCertificate `json:"certificate,omitempty"`
	SaveError   string             `json:"saveError,omitempty"`
}

// SessionUpdate is pushed to subscribers on every tick, input and on completion.
type SessionUpdate struct {
	Snapshot SessionSnapshot   `json:"snapshot"`
	Result   *SubmissionResult `json:"result,omitempty"`
}

// CertificateEarned is the event announced to the profile side once a certificate is stored.
type CertificateEarned struct {
	EventType   string            `json:"eventType"`
	Certificate CourseCertificate `json:"certificate"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// EventCertificateEarned is the routing key / event type for CertificateEarned.
const EventCertificateEarned = "certificate.earned"
