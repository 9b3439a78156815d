package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/agenda/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Task templates
	mux.HandleFunc("/tasks", s.handleTasksCollection)
	mux.HandleFunc("/tasks/", s.handleTaskRoutes)

	// Jobs
	mux.HandleFunc("/jobs", s.handleJobsCollection)
	mux.HandleFunc("/jobs/", s.handleJobRoutes)

	// Artifacts
	mux.HandleFunc("/artifacts", s.handleArtifactsCollection)
	mux.HandleFunc("/artifacts/", s.handleArtifactRoutes)

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - System
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

func (s *Server) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.app.TaskHandler.CreateHandler(w, r)
	case http.MethodGet:
		s.app.TaskHandler.ListHandler(w, r)
	default:
		handlers.WriteProblemStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTaskRoutes routes /tasks/{id} and /tasks/{id}/$execute
func (s *Server) handleTaskRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := splitResourcePath(r.URL.Path, "/tasks/")
	if id == "" {
		handlers.WriteProblemStatus(w, r, http.StatusNotFound, "no such endpoint")
		return
	}

	if rest == "$execute" {
		if r.Method != http.MethodPost {
			handlers.WriteProblemStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.app.TaskHandler.ExecuteHandler(w, r, id)
		return
	}
	if rest != "" {
		handlers.WriteProblemStatus(w, r, http.StatusNotFound, "no such endpoint")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.TaskHandler.GetHandler(w, r, id)
	case http.MethodPut:
		s.app.TaskHandler.UpdateHandler(w, r, id)
	case http.MethodDelete:
		s.app.TaskHandler.DeleteHandler(w, r, id)
	default:
		handlers.WriteProblemStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleJobsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handlers.WriteProblemStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.app.JobHandler.ListHandler(w, r)
}

// handleJobRoutes routes /jobs/{id} and /jobs/{id}/$stream
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := splitResourcePath(r.URL.Path, "/jobs/")
	if id == "" {
		handlers.WriteProblemStatus(w, r, http.StatusNotFound, "no such endpoint")
		return
	}

	if rest == "$stream" {
		if r.Method != http.MethodGet {
			handlers.WriteProblemStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.app.JobHandler.StreamHandler(w, r, id)
		return
	}
	if rest != "" {
		handlers.WriteProblemStatus(w, r, http.StatusNotFound, "no such endpoint")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.JobHandler.GetHandler(w, r, id)
	case http.MethodDelete:
		s.app.JobHandler.CancelHandler(w, r, id)
	default:
		handlers.WriteProblemStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleArtifactsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handlers.WriteProblemStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.app.ArtifactHandler.ListHandler(w, r)
}

// handleArtifactRoutes routes /artifacts/{id}
func (s *Server) handleArtifactRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := splitResourcePath(r.URL.Path, "/artifacts/")
	if id == "" || rest != "" {
		handlers.WriteProblemStatus(w, r, http.StatusNotFound, "no such endpoint")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.ArtifactHandler.GetHandler(w, r, id)
	case http.MethodDelete:
		s.app.ArtifactHandler.DeleteHandler(w, r, id)
	default:
		handlers.WriteProblemStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// splitResourcePath extracts "{id}" and the remaining subpath from a
// request path under prefix. A trailing slash alone yields an empty rest.
func splitResourcePath(path, prefix string) (id, rest string) {
	trimmed := strings.TrimPrefix(path, prefix)
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return "", ""
	}
	parts := strings.SplitN(trimmed, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		rest = parts[1]
	}
	return id, rest
}
