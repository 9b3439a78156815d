package interfaces

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/agenda/internal/models"
)

// TaskListOptions contains filters for listing task templates
type TaskListOptions struct {
	Enabled *bool  // Filter by enabled flag (nil = all)
	Kind    string // Filter by task kind ("" = all)
	Limit   int
	Offset  int
}

// TaskStorage persists task templates
type TaskStorage interface {
	SaveTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, opts *TaskListOptions) ([]*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	// CountTasks returns the number of templates matching the filter
	// fields of opts; Limit and Offset are ignored
	CountTasks(ctx context.Context, opts *TaskListOptions) (int, error)
}

// ArtifactStorage persists immutable execution artifacts
type ArtifactStorage interface {
	// SaveArtifact stores data as a new artifact and returns it.
	// parentID, when non-nil, must refer to an existing artifact.
	SaveArtifact(ctx context.Context, data json.RawMessage, parentID *string, level int) (*models.Artifact, error)
	GetArtifact(ctx context.Context, id string) (*models.Artifact, error)
	// ListArtifacts returns artifacts ordered by creation time ascending
	ListArtifacts(ctx context.Context) ([]*models.Artifact, error)
	DeleteArtifact(ctx context.Context, id string) error
}

// Session is a short-lived writable database scope handed to function tasks
// through capability injection. It is acquired per invocation and released
// on every exit path.
type Session interface {
	// Get reads a raw value by key within the session
	Get(key string) ([]byte, error)
	// Set writes a raw value by key within the session
	Set(key string, value []byte) error
	// Commit commits the session's writes
	Commit() error
	// Discard releases the session; safe to call after Commit
	Discard()
}

// StorageManager aggregates the entity stores over one database
type StorageManager interface {
	TaskStorage() TaskStorage
	ArtifactStorage() ArtifactStorage
	// NewSession opens a writable session for capability injection
	NewSession() Session
	Close() error
}
