package handlers

import (
	"net/http"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/arbor"
)

// APIHandler serves service-level endpoints (health, version)
type APIHandler struct {
	logger arbor.ILogger
}

// NewAPIHandler creates an API handler
func NewAPIHandler(logger arbor.ILogger) *APIHandler {
	return &APIHandler{logger: logger}
}

// HealthHandler handles GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.GetVersion(),
	})
}

// VersionHandler handles GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// NotFoundHandler answers unmatched API routes with a problem document
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteProblemStatus(w, r, http.StatusNotFound, "no such endpoint")
}
