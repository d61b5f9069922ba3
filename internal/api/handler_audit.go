package api

import (
	"net/http"
	"strconv"

	"tabsink/internal/domain"
)

type auditEntryResponse struct {
	ID          int64  `json:"id"`
	SubjectName string `json:"subject_name"`
	Action      string `json:"action"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ListAudit returns audit entries, newest first. Gated by read_all since the
// log spans every subject.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	acting, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	allowed, err := h.engine.Decide(r.Context(), acting, domain.ActionReadAll, &domain.ResourceDescriptor{ResourceType: "audit"})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !allowed {
		h.writeError(w, domain.ErrAccessDenied("subject %q lacks the read_all capability", acting.Name))
		return
	}

	filter := domain.AuditFilter{}
	q := r.URL.Query()
	if v := q.Get("subject"); v != "" {
		filter.SubjectName = &v
	}
	if v := q.Get("action"); v != "" {
		filter.Action = &v
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Page.MaxResults = n
		}
	}
	filter.Page.PageToken = q.Get("page_token")

	entries, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:          e.ID,
			SubjectName: e.SubjectName,
			Action:      e.Action,
			Status:      e.Status,
			Detail:      e.Detail,
			CreatedAt:   e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":     out,
		"total_count": total,
	})
}
