package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"course-assessment-service/internal/app"
	"course-assessment-service/internal/domain"
)

// APIHandler serves read-only history and certificate verification endpoints.
type APIHandler struct {
	service *app.AssessmentService
}

func NewAPIHandler(service *app.AssessmentService) *APIHandler {
	return &APIHandler{service: service}
}

// Register mounts the endpoints on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /users/{userID}/attempts", h.attempts)
	mux.HandleFunc("GET /users/{userID}/certificates", h.certificates)
	mux.HandleFunc("GET /certificates/{code}", h.verify)
	mux.HandleFunc("GET /certificates/{code}/document", h.document)
	mux.HandleFunc("GET /certificates/{code}/artifact", h.artifact)
}

func (h *APIHandler) attempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.service.Attempts(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if attempts == nil {
		attempts = []domain.QuizAttempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *APIHandler) certificates(w http.ResponseWriter, r *http.Request) {
	certificates, err := h.service.Certificates(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if certificates == nil {
		certificates = []domain.CourseCertificate{}
	}
	writeJSON(w, http.StatusOK, certificates)
}

type verification struct {
	Valid       bool                     `json:"valid"`
	Certificate domain.CourseCertificate `json:"certificate"`
}

func (h *APIHandler) verify(w http.ResponseWriter, r *http.Request) {
	certificate, err := h.service.VerifyCertificate(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verification{Valid: true, Certificate: certificate})
}

func (h *APIHandler) document(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	doc, err := h.service.RenderCertificate(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+code+`.pdf"`)
	if _, err := w.Write(doc); err != nil {
		log.Printf("write certificate document %s: %v", code, err)
	}
}

// artifact redirects to the archived copy of the document.
func (h *APIHandler) artifact(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.ArtifactURL(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	if url == "" {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: "certificate documents are not archived"})
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrCertificateNotFound), errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	default:
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}
