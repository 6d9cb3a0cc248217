package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"course-assessment-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const certificateCodesKey = "certificates:codes"

// HistoryStore keeps per-user history as Redis lists of JSON records:
//
//	RPUSH history:{userID}:attempts     <attempt json>
//	RPUSH history:{userID}:certificates <certificate json>
//	HSET  certificates:codes {code}     <certificate json>
//
// Record ids go to history:{userID}:ids so a retried append is a no-op.
type HistoryStore struct {
	client *redis.Client
}

func NewHistoryStore(client *redis.Client) *HistoryStore {
	return &HistoryStore{client: client}
}

func (s *HistoryStore) AppendAttempt(ctx context.Context, userID string, attempt domain.QuizAttempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	return s.appendOnce(ctx, userID, "attempt:"+attempt.ID, func(pipe redis.Pipeliner) {
		pipe.RPush(ctx, attemptsKey(userID), raw)
	})
}

// AppendCertificate writes the user list and the code index in one transaction.
func (s *HistoryStore) AppendCertificate(ctx context.Context, userID string, certificate domain.CourseCertificate) error {
	raw, err := json.Marshal(certificate)
	if err != nil {
		return fmt.Errorf("marshal certificate: %w", err)
	}
	return s.appendOnce(ctx, userID, "certificate:"+certificate.ID, func(pipe redis.Pipeliner) {
		pipe.RPush(ctx, certificatesKey(userID), raw)
		pipe.HSet(ctx, certificateCodesKey, certificate.VerificationCode, raw)
	})
}

// appendOnce runs write in a transaction unless id was already recorded for
// the user. A concurrent append of the same id fails with redis.TxFailedErr.
func (s *HistoryStore) appendOnce(ctx context.Context, userID, id string, write func(redis.Pipeliner)) error {
	key := idsKey(userID)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		seen, err := tx.SIsMember(ctx, key, id).Result()
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, key, id)
			write(pipe)
			return nil
		})
		return err
	}, key)
}

func (s *HistoryStore) Attempts(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	items, err := s.client.LRange(ctx, attemptsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	attempts := make([]domain.QuizAttempt, 0, len(items))
	for _, item := range items {
		var attempt domain.QuizAttempt
		if err := json.Unmarshal([]byte(item), &attempt); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

func (s *HistoryStore) Certificates(ctx context.Context, userID string) ([]domain.CourseCertificate, error) {
	items, err := s.client.LRange(ctx, certificatesKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	certificates := make([]domain.CourseCertificate, 0, len(items))
	for _, item := range items {
		var certificate domain.CourseCertificate
		if err := json.Unmarshal([]byte(item), &certificate); err != nil {
			return nil, fmt.Errorf("decode certificate: %w", err)
		}
		certificates = append(certificates, certificate)
	}
	return certificates, nil
}

func (s *HistoryStore) CertificateByCode(ctx context.Context, code string) (domain.CourseCertificate, error) {
	raw, err := s.client.HGet(ctx, certificateCodesKey, code).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CourseCertificate{}, domain.ErrCertificateNotFound
	}
	if err != nil {
		return domain.CourseCertificate{}, err
	}
	var certificate domain.CourseCertificate
	if err := json.Unmarshal(raw, &certificate); err != nil {
		return domain.CourseCertificate{}, fmt.Errorf("decode certificate: %w", err)
	}
	return certificate, nil
}

func attemptsKey(userID string) string {
	return "history:" + userID + ":attempts"
}

func certificatesKey(userID string) string {
	return "history:" + userID + ":certificates"
}

func idsKey(userID string) string {
	return "history:" + userID + ":ids"
}
