package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
)

type APIHandler struct {
	backend interfaces.ModelBackend
	logger  arbor.ILogger
}

func NewAPIHandler(backend interfaces.ModelBackend) *APIHandler {
	return &APIHandler{
		backend: backend,
		logger:  common.GetLogger(),
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"full":    common.GetFullVersion(),
	})
}

// HealthHandler reports service health including model backend reachability
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	backendStatus := "ok"
	status := "ok"
	if err := h.backend.HealthCheck(ctx); err != nil {
		backendStatus = err.Error()
		status = "degraded"
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"backend": backendStatus,
		"model":   h.backend.Name(),
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
