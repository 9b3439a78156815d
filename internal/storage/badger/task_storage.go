package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// TaskStorage implements the TaskStorage interface for Badger
type TaskStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTaskStorage creates a new TaskStorage instance
func NewTaskStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TaskStorage {
	return &TaskStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TaskStorage) SaveTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	if err := s.db.Store().Upsert(task.ID, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

func (s *TaskStorage) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := s.db.Store().Get(id, &task); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: task %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

func (s *TaskStorage) ListTasks(ctx context.Context, opts *interfaces.TaskListOptions) ([]*models.Task, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Kind != "" {
			query = query.And("Kind").Eq(models.TaskKind(opts.Kind))
		}
		if opts.Enabled != nil {
			query = query.And("Enabled").Eq(*opts.Enabled)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}

	// Default sort: creation time ascending
	query = query.SortBy("CreatedAt")

	var tasks []models.Task
	if err := s.db.Store().Find(&tasks, query); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	result := make([]*models.Task, len(tasks))
	for i := range tasks {
		result[i] = &tasks[i]
	}
	return result, nil
}

func (s *TaskStorage) DeleteTask(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Task{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: task %s", common.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *TaskStorage) CountTasks(ctx context.Context, opts *interfaces.TaskListOptions) (int, error) {
	var query *badgerhold.Query
	if opts != nil {
		query = badgerhold.Where("ID").Ne("")
		if opts.Kind != "" {
			query = query.And("Kind").Eq(models.TaskKind(opts.Kind))
		}
		if opts.Enabled != nil {
			query = query.And("Enabled").Eq(*opts.Enabled)
		}
	}

	count, err := s.db.Store().Count(&models.Task{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return int(count), nil
}
