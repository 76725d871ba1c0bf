package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/services/retrieval"
)

const defaultSearchK = 5

// SearchHandler exposes similarity search over the chunk index.
type SearchHandler struct {
	retriever *retrieval.Service
	logger    arbor.ILogger
}

func NewSearchHandler(retriever *retrieval.Service) *SearchHandler {
	return &SearchHandler{
		retriever: retriever,
		logger:    common.GetLogger(),
	}
}

// SearchHandler handles GET /api/search?q=...&k=...
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		WriteError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	k := defaultSearchK
	if kParam := r.URL.Query().Get("k"); kParam != "" {
		parsed, err := strconv.Atoi(kParam)
		if err != nil || parsed <= 0 {
			WriteError(w, http.StatusBadRequest, "query parameter 'k' must be a positive integer")
			return
		}
		k = parsed
	}

	chunks, err := h.retriever.Retrieve(r.Context(), query, k)
	if err != nil {
		h.logger.Warn().Err(err).Str("query", query).Msg("Search failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(chunks),
		"chunks": chunks,
	})
}
