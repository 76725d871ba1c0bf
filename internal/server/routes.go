package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Course generation
	mux.HandleFunc("/api/courses/generate", s.app.CourseHandler.GenerateHandler) // POST - start a generation job
	mux.HandleFunc("/api/courses", s.app.CourseHandler.ListHandler)              // GET - list courses
	mux.HandleFunc("/api/courses/", s.handleCourseRoutes)                        // GET /{id}, POST /{id}/lessons/{id}/content

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListHandler) // GET - list jobs, ?status= filter
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)           // GET/DELETE /{id}

	// API routes - Resources (source material ingestion)
	mux.HandleFunc("/api/resources", s.handleResourcesRoute) // GET (list), POST (ingest)

	// API routes - Search
	mux.HandleFunc("/api/search", s.app.SearchHandler.SearchHandler) // GET - similarity search

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleCourseRoutes routes /api/courses/{id} and lesson content subpaths
func (s *Server) handleCourseRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /api/courses/{courseID}/lessons/{lessonID}/content
	if strings.Contains(path, "/lessons/") && strings.HasSuffix(path, "/content") {
		s.app.LessonHandler.ContentHandler(w, r)
		return
	}

	// GET /api/courses/{id}
	if r.Method == "GET" {
		s.app.CourseHandler.GetHandler(w, r)
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// handleJobRoutes routes /api/jobs/{id} by method
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.JobHandler.GetHandler(w, r)
	case "DELETE":
		s.app.JobHandler.CancelHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleResourcesRoute routes /api/resources by method
func (s *Server) handleResourcesRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.ResourceHandler.ListHandler(w, r)
	case "POST":
		s.app.ResourceHandler.IngestHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
