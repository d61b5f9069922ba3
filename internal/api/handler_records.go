package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type recordsResponse struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// ListTableRecords returns the rows of an ingested table visible to the
// caller under org scoping.
func (h *Handler) ListTableRecords(w http.ResponseWriter, r *http.Request) {
	subject, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	ds, err := h.records.ListAccessibleRecords(r.Context(), subject, chi.URLParam(r, "table"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := recordsResponse{Columns: ds.Columns, Rows: make([]map[string]interface{}, 0, len(ds.Rows))}
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	for _, row := range ds.Rows {
		out := make(map[string]interface{}, len(row))
		for col, val := range row {
			out[col] = val.SQLArg()
		}
		resp.Rows = append(resp.Rows, out)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteTableRecords withdraws the caller's contribution to a table.
func (h *Handler) DeleteTableRecords(w http.ResponseWriter, r *http.Request) {
	subject, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.records.DeleteRecords(r.Context(), subject, chi.URLParam(r, "table")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
