package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
)

// ResourceHandler ingests source material and lists what is indexed.
type ResourceHandler struct {
	ingest interfaces.IngestService
	chunks interfaces.ChunkStorage
	logger arbor.ILogger
}

func NewResourceHandler(ingest interfaces.IngestService, chunks interfaces.ChunkStorage) *ResourceHandler {
	return &ResourceHandler{
		ingest: ingest,
		chunks: chunks,
		logger: common.GetLogger(),
	}
}

type ingestRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// IngestHandler accepts either inline text or a URL to fetch.
func (h *ResourceHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ingestRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	var (
		resource *models.Resource
		err      error
	)
	switch {
	case req.URL != "":
		resource, err = h.ingest.IngestURL(r.Context(), req.URL)
	case req.Text != "":
		resource, err = h.ingest.IngestText(r.Context(), req.Title, req.Text)
	default:
		WriteError(w, http.StatusBadRequest, "either url or text is required")
		return
	}
	if err != nil {
		h.logger.Warn().Err(err).Msg("Ingest failed")
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, resource)
}

// ListHandler returns all ingested resources
func (h *ResourceHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	resources, err := h.chunks.ListResources(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(resources),
		"resources": resources,
	})
}
