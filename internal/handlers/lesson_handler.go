package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/services/generation"
)

// LessonHandler streams lesson content over server-sent events.
type LessonHandler struct {
	orchestrator *generation.Orchestrator
	logger       arbor.ILogger
}

func NewLessonHandler(orchestrator *generation.Orchestrator) *LessonHandler {
	return &LessonHandler{
		orchestrator: orchestrator,
		logger:       common.GetLogger(),
	}
}

// ContentHandler generates content for one lesson and streams tokens as
// SSE data events, ending with a done event. Client disconnect cancels
// generation and nothing is persisted.
func (h *LessonHandler) ContentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	courseID, lessonID, ok := lessonPath(r.URL.Path)
	if !ok {
		WriteError(w, http.StatusBadRequest, "expected /api/courses/{courseID}/lessons/{lessonID}/content")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := h.orchestrator.StreamLessonContent(r.Context(), courseID, lessonID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		if event.Err != nil {
			writeSSE(w, flusher, "error", map[string]string{"error": event.Err.Error()})
			return
		}
		if event.Done {
			writeSSE(w, flusher, "done", map[string]string{"lesson_id": lessonID})
			return
		}
		writeSSE(w, flusher, "token", map[string]string{"token": event.Token})
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	flusher.Flush()
}

// lessonPath parses /api/courses/{courseID}/lessons/{lessonID}/content
func lessonPath(path string) (courseID, lessonID string, ok bool) {
	rest := strings.TrimPrefix(path, "/api/courses/")
	parts := strings.Split(rest, "/")
	if len(parts) != 4 || parts[1] != "lessons" || parts[3] != "content" {
		return "", "", false
	}
	if parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}
