package render

import (
	"context"
	"fmt"

	"course-assessment-service/internal/domain"
)

// ArtifactStore keeps rendered documents. URL hands out a short-lived link
// to a stored object and is called on read, never persisted.
type ArtifactStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) error
	URL(ctx context.Context, objectName string) (string, error)
}

// Renderer builds the certificate document, archives it when a store is
// configured and returns the document's permanent link.
type Renderer struct {
	documents *DocumentBuilder
	store     ArtifactStore
}

// NewRenderer returns a Renderer. store may be nil, in which case documents
// are only produced on demand from the stored certificate.
func NewRenderer(documents *DocumentBuilder, store ArtifactStore) *Renderer {
	return &Renderer{documents: documents, store: store}
}

func (r *Renderer) Render(ctx context.Context, c domain.CourseCertificate) (string, error) {
	doc, err := r.documents.Document(c)
	if err != nil {
		return "", err
	}
	if r.store != nil {
		if err := r.store.Put(ctx, ObjectName(c), doc, "application/pdf"); err != nil {
			return "", fmt.Errorf("store artifact: %w", err)
		}
	}
	return r.documents.DocumentLink(c.VerificationCode), nil
}

// ArtifactURL returns a fresh link to the archived document, or "" when no
// store is configured.
func (r *Renderer) ArtifactURL(ctx context.Context, c domain.CourseCertificate) (string, error) {
	if r.store == nil {
		return "", nil
	}
	return r.store.URL(ctx, ObjectName(c))
}
