package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tabsink/internal/domain"
)

// GetFeatures returns the names of every capability granted to the caller,
// for client-side surface filtering.
func (h *Handler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	subject, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	features, err := h.policies.GetAllowedFeatures(r.Context(), subject.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"features": features})
}

type createSubjectRequest struct {
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	Organizations []string `json:"organizations,omitempty"`
}

// CreateSubject registers a new subject with an all-false default policy.
// Requires the add_subject capability.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	acting, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req createSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if req.Name == "" {
		h.writeError(w, domain.ErrValidation("name is required"))
		return
	}

	created, apiKey, err := h.subjects.Create(r.Context(), acting, &domain.Subject{
		Name:          req.Name,
		Role:          req.Role,
		Organizations: req.Organizations,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	// api_key appears only in this response; it cannot be fetched again.
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      created.ID,
		"name":    created.Name,
		"role":    created.Role,
		"api_key": apiKey,
	})
}

// DeleteSubject removes a subject. Requires the delete_subject capability.
func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	acting, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.subjects.Delete(r.Context(), acting, chi.URLParam(r, "subjectID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSubjectPolicy replaces the full capability set of the target subject.
// Requires the set_policy capability.
func (h *Handler) SetSubjectPolicy(w http.ResponseWriter, r *http.Request) {
	acting, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var caps domain.CapabilitySet
	if err := json.NewDecoder(r.Body).Decode(&caps); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}

	targetID := chi.URLParam(r, "subjectID")
	if err := h.policies.SetPolicy(r.Context(), acting, targetID, caps); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"subject_id":   targetID,
		"capabilities": caps,
	})
}

// GetSubjectPolicy returns the target subject's capability set. Callers may
// always read their own; reading another subject's requires set_policy.
func (h *Handler) GetSubjectPolicy(w http.ResponseWriter, r *http.Request) {
	acting, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	targetID := chi.URLParam(r, "subjectID")
	if targetID != acting.ID {
		allowed, err := h.engine.Decide(r.Context(), acting, domain.ActionSetPolicy, &domain.ResourceDescriptor{
			ResourceType:    "policy",
			TargetSubjectID: targetID,
		})
		if err != nil {
			h.writeError(w, err)
			return
		}
		if !allowed {
			h.writeError(w, domain.ErrAccessDenied("subject %q may not read another subject's policy", acting.Name))
			return
		}
	}

	caps, err := h.engine.GetPermissions(r.Context(), targetID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"subject_id":   targetID,
		"capabilities": caps,
	})
}
