package handlers

import (
	"net/http"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/arbor"
)

// ArtifactHandler serves stored execution artifacts
type ArtifactHandler struct {
	storage interfaces.ArtifactStorage
	logger  arbor.ILogger
}

// NewArtifactHandler creates an artifact handler
func NewArtifactHandler(storage interfaces.ArtifactStorage, logger arbor.ILogger) *ArtifactHandler {
	return &ArtifactHandler{
		storage: storage,
		logger:  logger,
	}
}

type artifactListResponse struct {
	Artifacts []*models.Artifact `json:"artifacts"`
	Count     int                `json:"count"`
}

// ListHandler handles GET /artifacts
func (h *ArtifactHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.storage.ListArtifacts(r.Context())
	if err != nil {
		WriteProblem(w, r, err)
		return
	}
	if artifacts == nil {
		artifacts = []*models.Artifact{}
	}
	WriteJSON(w, http.StatusOK, artifactListResponse{Artifacts: artifacts, Count: len(artifacts)})
}

// GetHandler handles GET /artifacts/{id}
func (h *ArtifactHandler) GetHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := common.ValidateID(id); err != nil {
		WriteProblem(w, r, err)
		return
	}

	artifact, err := h.storage.GetArtifact(r.Context(), id)
	if err != nil {
		WriteProblem(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, artifact)
}

// DeleteHandler handles DELETE /artifacts/{id}
func (h *ArtifactHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := common.ValidateID(id); err != nil {
		WriteProblem(w, r, err)
		return
	}

	if err := h.storage.DeleteArtifact(r.Context(), id); err != nil {
		WriteProblem(w, r, err)
		return
	}

	h.logger.Info().
		Str("artifact_id", id).
		Msg("Artifact deleted")

	w.WriteHeader(http.StatusNoContent)
}
