package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-assessment-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// HistoryStore persists attempts and certificates in Postgres. Appends are
// keyed by record id, so retrying one that already landed changes nothing.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

func (s *HistoryStore) AppendAttempt(ctx context.Context, userID string, a domain.QuizAttempt) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (id, quiz_id, course_id, user_id, answers, score, passed, completed_at, time_spent_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.QuizID, a.CourseID, userID, toInt32(a.Answers), a.Score, a.Passed, a.CompletedAt, a.TimeSpentSeconds)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *HistoryStore) AppendCertificate(ctx context.Context, userID string, c domain.CourseCertificate) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO course_certificates (id, quiz_id, course_id, user_id, user_name, course_name, skill, score, issued_at, verification_code, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING`,
		c.ID, c.QuizID, c.CourseID, userID, c.UserName, c.CourseName, c.Skill, c.Score, c.IssuedAt, c.VerificationCode, c.CertificateImageURL)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *HistoryStore) Attempts(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, course_id, user_id, answers, score, passed, completed_at, time_spent_seconds
		 FROM quiz_attempts WHERE user_id=$1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.QuizAttempt
	for rows.Next() {
		var a domain.QuizAttempt
		var answers []int32
		if err := rows.Scan(&a.ID, &a.QuizID, &a.CourseID, &a.UserID, &answers, &a.Score, &a.Passed, &a.CompletedAt, &a.TimeSpentSeconds); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Answers = fromInt32(answers)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

const certificateColumns = `id, quiz_id, course_id, user_id, user_name, course_name, skill, score, issued_at, verification_code, image_url`

func (s *HistoryStore) Certificates(ctx context.Context, userID string) ([]domain.CourseCertificate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+certificateColumns+` FROM course_certificates WHERE user_id=$1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	var certificates []domain.CourseCertificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certificates = append(certificates, c)
	}
	return certificates, rows.Err()
}

func (s *HistoryStore) CertificateByCode(ctx context.Context, code string) (domain.CourseCertificate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM course_certificates WHERE verification_code=$1`, code)
	c, err := scanCertificate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CourseCertificate{}, domain.ErrCertificateNotFound
	}
	return c, err
}

func scanCertificate(row pgx.Row) (domain.CourseCertificate, error) {
	var c domain.CourseCertificate
	err := row.Scan(&c.ID, &c.QuizID, &c.CourseID, &c.UserID, &c.UserName, &c.CourseName, &c.Skill, &c.Score, &c.IssuedAt, &c.VerificationCode, &c.CertificateImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, err
	}
	if err != nil {
		return c, fmt.Errorf("scan certificate: %w", err)
	}
	return c, nil
}

func toInt32(values []int) []int32 {
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v)
	}
	return out
}

func fromInt32(values []int32) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
