package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// ArtifactStorage implements the ArtifactStorage interface for Badger
type ArtifactStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArtifactStorage creates a new ArtifactStorage instance
func NewArtifactStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ArtifactStorage {
	return &ArtifactStorage{
		db:     db,
		logger: logger,
	}
}

// SaveArtifact stores data as a new artifact. Each save assigns a fresh ID;
// payload bytes are stored verbatim. A non-nil parentID must refer to an
// existing artifact.
func (s *ArtifactStorage) SaveArtifact(ctx context.Context, data json.RawMessage, parentID *string, level int) (*models.Artifact, error) {
	if level < 0 {
		return nil, fmt.Errorf("%w: artifact level cannot be negative", common.ErrValidationFailed)
	}

	if parentID != nil {
		var parent models.Artifact
		if err := s.db.Store().Get(*parentID, &parent); err != nil {
			if err == badgerhold.ErrNotFound {
				return nil, fmt.Errorf("%w: parent artifact %s", common.ErrNotFound, *parentID)
			}
			return nil, fmt.Errorf("failed to check parent artifact: %w", err)
		}
	}

	now := time.Now()
	artifact := &models.Artifact{
		ID:        common.NewID(),
		ParentID:  parentID,
		Level:     level,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.Store().Insert(artifact.ID, artifact); err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}

	s.logger.Debug().
		Str("artifact_id", artifact.ID).
		Int("level", level).
		Msg("Artifact saved")

	return artifact, nil
}

func (s *ArtifactStorage) GetArtifact(ctx context.Context, id string) (*models.Artifact, error) {
	var artifact models.Artifact
	if err := s.db.Store().Get(id, &artifact); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: artifact %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return &artifact, nil
}

// ListArtifacts returns all artifacts ordered by creation time ascending
func (s *ArtifactStorage) ListArtifacts(ctx context.Context) ([]*models.Artifact, error) {
	var artifacts []models.Artifact
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt")
	if err := s.db.Store().Find(&artifacts, query); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	result := make([]*models.Artifact, len(artifacts))
	for i := range artifacts {
		result[i] = &artifacts[i]
	}
	return result, nil
}

func (s *ArtifactStorage) DeleteArtifact(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Artifact{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: artifact %s", common.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}
