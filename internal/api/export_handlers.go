package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/jingxuan-bi/report-service/internal/export"
	"github.com/jingxuan-bi/report-service/internal/sqltemplate"
)

const maxListedJobs = 20

// ExportHandler serves the export job endpoints.
type ExportHandler struct {
	runner *export.Runner
	store  export.JobStore
}

// NewExportHandler creates an export handler.
func NewExportHandler(runner *export.Runner, store export.JobStore) *ExportHandler {
	return &ExportHandler{runner: runner, store: store}
}

// Create submits an export job. The response is 202 with the job id;
// the spreadsheet is produced in the background.
func (h *ExportHandler) Create(w http.ResponseWriter, r *http.Request) {
	reportType := chi.URLParam(r, "reportType")
	if !sqltemplate.IsKnownReport(reportType) {
		respondError(w, http.StatusNotFound, "unknown report type: "+reportType)
		return
	}

	var req queryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	params := &req.QueryParams
	if req.Params != nil {
		params = req.Params
	}

	job, err := h.runner.CreateJob(r.Context(), reportType, params)
	if err != nil {
		var verr *sqltemplate.ValidationError
		var tooLarge *export.ErrExportTooLarge
		switch {
		case errors.As(err, &verr):
			respondError(w, http.StatusBadRequest, verr.Error())
		case errors.As(err, &tooLarge):
			respondError(w, http.StatusBadRequest, tooLarge.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondSuccess(w, http.StatusAccepted, map[string]interface{}{
		"id":           job.ID,
		"status":       job.Status,
		"download_url": job.DownloadURL,
	})
}

// List returns the newest jobs, capped.
func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.store.List()
	if len(jobs) > maxListedJobs {
		jobs = jobs[:maxListedJobs]
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Get returns one job by id.
func (h *ExportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := h.store.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "export job not found: "+id)
		return
	}
	respondSuccess(w, http.StatusOK, job)
}

// Download streams the finished spreadsheet. The file on disk is
// authoritative: a completed job whose file has been swept returns 404.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := h.store.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "export job not found: "+id)
		return
	}
	if job.Status != export.StatusCompleted {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("export job is %s, not completed", job.Status))
		return
	}
	if _, err := os.Stat(job.FilePath); err != nil {
		respondError(w, http.StatusNotFound, "export file no longer available")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.FileName))
	http.ServeFile(w, r, job.FilePath)
}
