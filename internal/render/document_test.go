package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"course-assessment-service/internal/domain"
)

func sampleCertificate() domain.CourseCertificate {
	return domain.CourseCertificate{
		ID:               "c1",
		UserID:           "u1",
		UserName:         "Zoë Alvarez",
		CourseID:         "electrical-basics",
		CourseName:       "Electrical Work Fundamentals",
		Skill:            "Electrical Work",
		Score:            80,
		IssuedAt:         time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC),
		VerificationCode: "SKILL-ELECTRICAL-BASICS-M3R1X2ABC",
	}
}

func TestDocumentIsPDF(t *testing.T) {
	doc, err := NewDocumentBuilder("https://skills.example").Document(sampleCertificate())
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Fatalf("expected a PDF, got %q", doc[:8])
	}
}

func TestVerificationLink(t *testing.T) {
	if got := NewDocumentBuilder("https://skills.example/").VerificationLink("SKILL-X-1"); got != "https://skills.example/certificates/SKILL-X-1" {
		t.Fatalf("unexpected link %q", got)
	}
	if got := NewDocumentBuilder("").VerificationLink("SKILL-X-1"); got != "SKILL-X-1" {
		t.Fatalf("expected bare code, got %q", got)
	}
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, name string, data []byte, _ string) error {
	m.objects[name] = data
	return nil
}

func (m *memoryStore) URL(_ context.Context, name string) (string, error) {
	return "https://files.example/" + name + "?X-Amz-Expires=604800", nil
}

func TestRendererArchivesAndReturnsPermanentLink(t *testing.T) {
	store := &memoryStore{objects: make(map[string][]byte)}
	r := NewRenderer(NewDocumentBuilder("https://skills.example"), store)
	c := sampleCertificate()

	link, err := r.Render(context.Background(), c)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if link != "https://skills.example/certificates/SKILL-ELECTRICAL-BASICS-M3R1X2ABC/document" {
		t.Fatalf("unexpected link %q", link)
	}
	if !bytes.HasPrefix(store.objects[ObjectName(c)], []byte("%PDF")) {
		t.Fatalf("expected the pdf to be archived under %s", ObjectName(c))
	}

	url, err := r.ArtifactURL(context.Background(), c)
	if err != nil || !strings.Contains(url, ObjectName(c)) {
		t.Fatalf("expected a presigned link, got %q err=%v", url, err)
	}
}

func TestRendererWithoutStore(t *testing.T) {
	r := NewRenderer(NewDocumentBuilder(""), nil)
	link, err := r.Render(context.Background(), sampleCertificate())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if link != "/certificates/SKILL-ELECTRICAL-BASICS-M3R1X2ABC/document" {
		t.Fatalf("unexpected link %q", link)
	}
	if url, err := r.ArtifactURL(context.Background(), sampleCertificate()); err != nil || url != "" {
		t.Fatalf("expected no artifact link, got %q err=%v", url, err)
	}
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte, string) error {
	return errors.New("bucket missing")
}

func (failingStore) URL(context.Context, string) (string, error) {
	return "", errors.New("bucket missing")
}

func TestRendererReportsStoreFailure(t *testing.T) {
	_, err := NewRenderer(NewDocumentBuilder(""), failingStore{}).Render(context.Background(), sampleCertificate())
	if err == nil || !strings.Contains(err.Error(), "bucket missing") {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestObjectName(t *testing.T) {
	if got := ObjectName(sampleCertificate()); got != "certificates/u1/SKILL-ELECTRICAL-BASICS-M3R1X2ABC-2024-11-22.pdf" {
		t.Fatalf("unexpected object name %q", got)
	}
}
