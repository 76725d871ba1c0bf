package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
	"github.com/ternarybob/doceo/internal/services/generation"
)

// JobHandler serves generation job status and cancellation.
type JobHandler struct {
	orchestrator *generation.Orchestrator
	jobs         interfaces.JobStorage
	logger       arbor.ILogger
}

func NewJobHandler(orchestrator *generation.Orchestrator, jobs interfaces.JobStorage) *JobHandler {
	return &JobHandler{
		orchestrator: orchestrator,
		jobs:         jobs,
		logger:       common.GetLogger(),
	}
}

// ListHandler returns jobs, optionally filtered by ?status=
func (h *JobHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	var (
		jobs []*models.GenerationJob
		err  error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		jobs, err = h.jobs.ListJobsByStatus(r.Context(), models.JobStatus(status))
	} else {
		jobs, err = h.jobs.ListJobs(r.Context())
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// GetHandler returns a single job's current state
func (h *JobHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDFromPath(r)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// CancelHandler requests cancellation of a running job. Cancelling a
// terminal job is a no-op that returns its final state.
func (h *JobHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDFromPath(r)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.orchestrator.Cancel(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

func jobIDFromPath(r *http.Request) string {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if strings.Contains(jobID, "/") {
		return ""
	}
	return jobID
}
