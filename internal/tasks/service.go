// -----------------------------------------------------------------------
// Task service - CRUD over reusable task templates
// -----------------------------------------------------------------------

package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/arbor"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Service provides CRUD operations over task templates
type Service struct {
	storage interfaces.TaskStorage
	logger  arbor.ILogger
}

// NewService creates a task template service
func NewService(storage interfaces.TaskStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// CreateRequest carries the writable template fields on creation. Kind
// defaults to shell and Enabled to true when omitted.
type CreateRequest struct {
	Command    string                 `json:"command" validate:"required"`
	Kind       models.TaskKind        `json:"kind,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Enabled    *bool                  `json:"enabled,omitempty"`
}

// UpdateRequest carries the mutable template fields. Nil fields are left
// unchanged; Parameters nil leaves the stored value, non-nil replaces it.
type UpdateRequest struct {
	Command    *string                `json:"command,omitempty"`
	Kind       *models.TaskKind       `json:"kind,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Enabled    *bool                  `json:"enabled,omitempty"`
}

// ListOptions filters and paginates template listings. Page is 1-based.
type ListOptions struct {
	Enabled *bool
	Page    int
	Size    int
}

// Create stores a new task template
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*models.Task, error) {
	if req == nil || req.Command == "" {
		return nil, fmt.Errorf("%w: command is required", common.ErrValidationFailed)
	}

	kind := req.Kind
	if kind == "" {
		kind = models.TaskKindShell
	}
	if !models.IsValidTaskKind(kind) {
		return nil, fmt.Errorf("%w: invalid task kind %q", common.ErrValidationFailed, kind)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := time.Now()
	task := &models.Task{
		ID:         common.NewID(),
		Command:    req.Command,
		Kind:       kind,
		Parameters: req.Parameters,
		Enabled:    enabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.storage.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("kind", string(task.Kind)).
		Msg("Task template created")

	return task, nil
}

// Get returns a task template by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Task, error) {
	if err := common.ValidateID(id); err != nil {
		return nil, err
	}
	return s.storage.GetTask(ctx, id)
}

// Update applies the request's non-nil fields to an existing template
func (s *Service) Update(ctx context.Context, id string, req *UpdateRequest) (*models.Task, error) {
	if err := common.ValidateID(id); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: empty update", common.ErrValidationFailed)
	}

	task, err := s.storage.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Command != nil {
		if *req.Command == "" {
			return nil, fmt.Errorf("%w: command cannot be empty", common.ErrValidationFailed)
		}
		task.Command = *req.Command
	}
	if req.Kind != nil {
		if !models.IsValidTaskKind(*req.Kind) {
			return nil, fmt.Errorf("%w: invalid task kind %q", common.ErrValidationFailed, *req.Kind)
		}
		task.Kind = *req.Kind
	}
	if req.Parameters != nil {
		task.Parameters = req.Parameters
	}
	if req.Enabled != nil {
		task.Enabled = *req.Enabled
	}
	task.UpdatedAt = time.Now()

	if err := s.storage.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	s.logger.Debug().
		Str("task_id", task.ID).
		Msg("Task template updated")

	return task, nil
}

// Delete removes a task template
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := common.ValidateID(id); err != nil {
		return err
	}
	if err := s.storage.DeleteTask(ctx, id); err != nil {
		return err
	}

	s.logger.Info().
		Str("task_id", id).
		Msg("Task template deleted")

	return nil
}

// List returns a page of templates plus the total count across all pages
func (s *Service) List(ctx context.Context, opts *ListOptions) ([]*models.Task, int, error) {
	if opts == nil {
		opts = &ListOptions{}
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.Size
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	tasks, err := s.storage.ListTasks(ctx, &interfaces.TaskListOptions{
		Enabled: opts.Enabled,
		Limit:   size,
		Offset:  (page - 1) * size,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	total, err := s.storage.CountTasks(ctx, &interfaces.TaskListOptions{Enabled: opts.Enabled})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return tasks, total, nil
}
