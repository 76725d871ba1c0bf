package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/doceo/internal/services/llm"
)

func TestRequireMethod(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/courses", nil)

	assert.False(t, RequireMethod(w, r, "GET"))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	assert.True(t, RequireMethod(w, r, "POST"))
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/courses/generate", strings.NewReader(`{"topic":"go","bogus":1}`))

	var req struct {
		Topic string `json:"topic"`
	}
	assert.False(t, DecodeJSON(w, r, &req))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestHealthHandler_OK(t *testing.T) {
	handler := NewAPIHandler(llm.NewMockBackend(8))

	w := httptest.NewRecorder()
	handler.HealthHandler(w, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"model":"mock"`)
}

func TestHealthHandler_DegradedWhenBackendDown(t *testing.T) {
	backend := llm.NewMockBackend(8)
	backend.Err = errors.New("model not loaded")
	handler := NewAPIHandler(backend)

	w := httptest.NewRecorder()
	handler.HealthHandler(w, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestVersionHandler(t *testing.T) {
	handler := NewAPIHandler(llm.NewMockBackend(8))

	w := httptest.NewRecorder()
	handler.VersionHandler(w, httptest.NewRequest("GET", "/api/version", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version"`)
}

func TestLessonPath(t *testing.T) {
	courseID, lessonID, ok := lessonPath("/api/courses/course_1/lessons/lesson_2/content")
	require.True(t, ok)
	assert.Equal(t, "course_1", courseID)
	assert.Equal(t, "lesson_2", lessonID)

	_, _, ok = lessonPath("/api/courses/course_1/lessons/lesson_2")
	assert.False(t, ok)

	_, _, ok = lessonPath("/api/courses//lessons/lesson_2/content")
	assert.False(t, ok)
}
