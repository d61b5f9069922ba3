package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tabsink/internal/domain"
)

// maxUploadBytes bounds the multipart file size accepted per submission.
const maxUploadBytes = 32 << 20 // 32 MiB

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SubmitFileIngestion accepts a multipart upload (fields: file, table_name)
// and queues it for ingestion. Responds 202 with the job ID, or 403 with
// the job ID when the submission is denied outright.
func (h *Handler) SubmitFileIngestion(w http.ResponseWriter, r *http.Request) {
	subject, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, domain.ErrValidation("invalid multipart form: %v", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, domain.ErrValidation("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		h.writeError(w, domain.ErrValidation("read upload: %v", err))
		return
	}
	if len(data) > maxUploadBytes {
		h.writeError(w, domain.ErrValidation("file exceeds the %d byte limit", maxUploadBytes))
		return
	}

	jobID, err := h.ingestion.SubmitFile(r.Context(), subject, data, r.FormValue("table_name"))
	if err != nil {
		h.writeSubmitError(w, jobID, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID, Status: string(domain.JobStatusQueued)})
}

type submitAPIRequest struct {
	Count     int    `json:"count"`
	TableName string `json:"table_name"`
}

// SubmitAPIIngestion queues a remote-API pull of count records.
func (h *Handler) SubmitAPIIngestion(w http.ResponseWriter, r *http.Request) {
	subject, err := h.currentSubject(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req submitAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}

	jobID, err := h.ingestion.SubmitAPI(r.Context(), subject, req.Count, req.TableName)
	if err != nil {
		h.writeSubmitError(w, jobID, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID, Status: string(domain.JobStatusQueued)})
}

// writeSubmitError reports a failed submission. A denied submission still
// carries a job ID so the caller can inspect the recorded denial.
func (h *Handler) writeSubmitError(w http.ResponseWriter, jobID string, err error) {
	var denied *domain.AccessDeniedError
	if jobID != "" && errors.As(err, &denied) {
		h.writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"code":    http.StatusForbidden,
			"message": err.Error(),
			"job_id":  jobID,
		})
		return
	}
	h.writeError(w, err)
}

type jobResponse struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	TableName    string `json:"table_name"`
	SourceKind   string `json:"source_kind"`
	RowCount     *int   `json:"row_count,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// GetJob returns the last persisted state of an ingestion job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	if _, err := h.currentSubject(r); err != nil {
		h.writeError(w, err)
		return
	}

	job, err := h.ingestion.GetJobStatus(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := jobResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		TableName:    job.TableName,
		SourceKind:   string(job.SourceKind),
		ErrorMessage: job.ErrorMessage,
	}
	if job.Status == domain.JobStatusCompleted {
		resp.RowCount = &job.RowCount
	}
	h.writeJSON(w, http.StatusOK, resp)
}
