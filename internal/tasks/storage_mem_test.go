package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
)

// memStorage is an in-memory StorageManager for executor and service
// tests. failArtifactSave simulates a storage-level artifact write error.
type memStorage struct {
	mu               sync.Mutex
	tasks            map[string]*models.Task
	artifacts        map[string]*models.Artifact
	failArtifactSave bool
	sessions         []*memSession
}

func newMemStorage() *memStorage {
	return &memStorage{
		tasks:     make(map[string]*models.Task),
		artifacts: make(map[string]*models.Artifact),
	}
}

func (m *memStorage) TaskStorage() interfaces.TaskStorage         { return m }
func (m *memStorage) ArtifactStorage() interfaces.ArtifactStorage { return m }
func (m *memStorage) Close() error                                { return nil }

func (m *memStorage) NewSession() interfaces.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &memSession{values: make(map[string][]byte)}
	m.sessions = append(m.sessions, s)
	return s
}

func (m *memStorage) SaveTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *task
	m.tasks[task.ID] = &clone
	return nil
}

func (m *memStorage) GetTask(ctx context.Context, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", common.ErrNotFound, id)
	}
	clone := *task
	return &clone, nil
}

func (m *memStorage) ListTasks(ctx context.Context, opts *interfaces.TaskListOptions) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.Task
	for _, task := range m.tasks {
		if opts != nil {
			if opts.Kind != "" && string(task.Kind) != opts.Kind {
				continue
			}
			if opts.Enabled != nil && task.Enabled != *opts.Enabled {
				continue
			}
		}
		clone := *task
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if opts != nil && opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts != nil && opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *memStorage) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("%w: task %s", common.ErrNotFound, id)
	}
	delete(m.tasks, id)
	return nil
}

func (m *memStorage) CountTasks(ctx context.Context, opts *interfaces.TaskListOptions) (int, error) {
	listed, err := m.ListTasks(ctx, &interfaces.TaskListOptions{
		Kind:    optKind(opts),
		Enabled: optEnabled(opts),
	})
	if err != nil {
		return 0, err
	}
	return len(listed), nil
}

func optKind(opts *interfaces.TaskListOptions) string {
	if opts == nil {
		return ""
	}
	return opts.Kind
}

func optEnabled(opts *interfaces.TaskListOptions) *bool {
	if opts == nil {
		return nil
	}
	return opts.Enabled
}

func (m *memStorage) SaveArtifact(ctx context.Context, data json.RawMessage, parentID *string, level int) (*models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failArtifactSave {
		return nil, errors.New("artifact store unavailable")
	}
	if level < 0 {
		return nil, fmt.Errorf("%w: level cannot be negative", common.ErrValidationFailed)
	}
	if parentID != nil {
		if _, ok := m.artifacts[*parentID]; !ok {
			return nil, fmt.Errorf("%w: parent artifact %s", common.ErrNotFound, *parentID)
		}
	}

	now := time.Now()
	artifact := &models.Artifact{
		ID:        common.NewID(),
		ParentID:  parentID,
		Level:     level,
		Data:      append(json.RawMessage(nil), data...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.artifacts[artifact.ID] = artifact
	return artifact, nil
}

func (m *memStorage) GetArtifact(ctx context.Context, id string) (*models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	artifact, ok := m.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("%w: artifact %s", common.ErrNotFound, id)
	}
	return artifact, nil
}

func (m *memStorage) ListArtifacts(ctx context.Context) ([]*models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Artifact
	for _, a := range m.artifacts {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memStorage) DeleteArtifact(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artifacts[id]; !ok {
		return fmt.Errorf("%w: artifact %s", common.ErrNotFound, id)
	}
	delete(m.artifacts, id)
	return nil
}

func (m *memStorage) artifactCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.artifacts)
}

type memSession struct {
	mu        sync.Mutex
	values    map[string][]byte
	committed bool
	discarded bool
}

func (s *memSession) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %s", common.ErrNotFound, key)
	}
	return v, nil
}

func (s *memSession) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memSession) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = true
	return nil
}

func (s *memSession) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = true
}
