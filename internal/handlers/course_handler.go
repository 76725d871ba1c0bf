package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/services/generation"
)

// CourseHandler serves course generation and retrieval endpoints.
type CourseHandler struct {
	orchestrator *generation.Orchestrator
	courses      interfaces.CourseStorage
	logger       arbor.ILogger
}

func NewCourseHandler(orchestrator *generation.Orchestrator, courses interfaces.CourseStorage) *CourseHandler {
	return &CourseHandler{
		orchestrator: orchestrator,
		courses:      courses,
		logger:       common.GetLogger(),
	}
}

// GenerateHandler accepts a generation request and returns 202 with the
// job ID. The course is produced asynchronously.
func (h *CourseHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req generation.Request
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.orchestrator.StartGeneration(r.Context(), &req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// ListHandler returns all generated courses
func (h *CourseHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(courses),
		"courses": courses,
	})
}

// GetHandler returns a single course tree by ID
func (h *CourseHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	courseID := strings.TrimPrefix(r.URL.Path, "/api/courses/")
	if courseID == "" || strings.Contains(courseID, "/") {
		WriteError(w, http.StatusBadRequest, "course ID is required")
		return
	}

	course, err := h.courses.GetCourse(r.Context(), courseID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, course)
}
