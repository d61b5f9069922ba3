// Package api provides the HTTP handlers for the ingestion platform REST API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tabsink/internal/domain"
	"tabsink/internal/service/ingestion"
	"tabsink/internal/service/records"
	"tabsink/internal/service/security"
)

// Handler wires the service layer to the HTTP surface.
type Handler struct {
	ingestion *ingestion.Service
	records   *records.Service
	policies  *security.PolicyService
	subjects  *security.SubjectService
	audit     domain.AuditRepository
	engine    domain.PolicyEngine
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required service dependencies.
func NewHandler(
	ingestionSvc *ingestion.Service,
	recordsSvc *records.Service,
	policies *security.PolicyService,
	subjects *security.SubjectService,
	audit domain.AuditRepository,
	engine domain.PolicyEngine,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		ingestion: ingestionSvc,
		records:   recordsSvc,
		policies:  policies,
		subjects:  subjects,
		audit:     audit,
		engine:    engine,
		logger:    logger.With("component", "api"),
	}
}

// Routes registers every endpoint on the router. Authentication middleware
// must already be mounted by the caller.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/ingest/file", h.SubmitFileIngestion)
	r.Post("/v1/ingest/api", h.SubmitAPIIngestion)
	r.Get("/v1/jobs/{jobID}", h.GetJob)
	r.Get("/v1/features", h.GetFeatures)

	r.Post("/v1/subjects", h.CreateSubject)
	r.Delete("/v1/subjects/{subjectID}", h.DeleteSubject)
	r.Put("/v1/subjects/{subjectID}/policy", h.SetSubjectPolicy)
	r.Get("/v1/subjects/{subjectID}/policy", h.GetSubjectPolicy)

	r.Get("/v1/tables/{table}/records", h.ListTableRecords)
	r.Delete("/v1/tables/{table}/records", h.DeleteTableRecords)

	r.Get("/v1/audit", h.ListAudit)
}

// currentSubject resolves the authenticated subject from the request
// context. Requests that passed authentication for a since-deleted subject
// get 404.
func (h *Handler) currentSubject(r *http.Request) (*domain.Subject, error) {
	name, ok := domain.SubjectNameFromContext(r.Context())
	if !ok {
		return nil, domain.ErrAccessDenied("no authenticated subject")
	}
	return h.subjects.GetByName(r.Context(), name)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encode response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]interface{}{
		"code":    status,
		"message": err.Error(),
	})
}
