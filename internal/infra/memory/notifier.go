package memory

import (
	"context"
	"log"
	"sync"

	"course-assessment-service/internal/domain"
)

// Notifier records certificate-earned events in memory. It stands in for the
// message broker in tests and in single-process deployments.
type Notifier struct {
	mu     sync.Mutex
	events []domain.CourseCertificate
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) CertificateEarned(_ context.Context, certificate domain.CourseCertificate) error {
	n.mu.Lock()
	n.events = append(n.events, certificate)
	n.mu.Unlock()
	log.Printf("certificate earned: %s by user %s", certificate.VerificationCode, certificate.UserID)
	return nil
}

// Events returns the certificates announced so far.
func (n *Notifier) Events() []domain.CourseCertificate {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.CourseCertificate, len(n.events))
	copy(out, n.events)
	return out
}
