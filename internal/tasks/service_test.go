package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/arbor"
)

func newTestService() (*Service, *memStorage) {
	storage := newMemStorage()
	return NewService(storage, arbor.NewLogger()), storage
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newTestService()

	task, err := svc.Create(context.Background(), &CreateRequest{Command: "echo hi"})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.TaskKindShell, task.Kind, "kind defaults to shell")
	assert.True(t, task.Enabled, "enabled defaults to true")
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name string
		req  *CreateRequest
	}{
		{"nil request", nil},
		{"empty command", &CreateRequest{}},
		{"bad kind", &CreateRequest{Command: "x", Kind: models.TaskKind("cron")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidationFailed))
		})
	}
}

func TestGetRoundTrip(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), &CreateRequest{
		Command:    "greet",
		Kind:       models.TaskKindFunction,
		Parameters: map[string]interface{}{"name": "world"},
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "greet", got.Command)
	assert.Equal(t, models.TaskKindFunction, got.Kind)
	assert.Equal(t, "world", got.Parameters["name"])
}

func TestGetErrors(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Get(context.Background(), "bogus")
	assert.True(t, errors.Is(err, common.ErrInvalidID))

	_, err = svc.Get(context.Background(), common.NewID())
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestUpdatePartial(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), &CreateRequest{Command: "echo hi"})
	require.NoError(t, err)

	disabled := false
	updated, err := svc.Update(context.Background(), created.ID, &UpdateRequest{Enabled: &disabled})
	require.NoError(t, err)

	assert.False(t, updated.Enabled)
	assert.Equal(t, "echo hi", updated.Command, "untouched fields survive")
	assert.Equal(t, created.CreatedAt, updated.CreatedAt, "created_at is immutable")
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), &CreateRequest{Command: "echo hi"})
	require.NoError(t, err)

	empty := ""
	_, err = svc.Update(context.Background(), created.ID, &UpdateRequest{Command: &empty})
	assert.True(t, errors.Is(err, common.ErrValidationFailed))

	badKind := models.TaskKind("cron")
	_, err = svc.Update(context.Background(), created.ID, &UpdateRequest{Kind: &badKind})
	assert.True(t, errors.Is(err, common.ErrValidationFailed))

	_, err = svc.Update(context.Background(), common.NewID(), &UpdateRequest{Enabled: &[]bool{true}[0]})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), &CreateRequest{Command: "echo hi"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	_, err = svc.Get(context.Background(), created.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	err = svc.Delete(context.Background(), created.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestListFilterAndPagination(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	off := false
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, &CreateRequest{Command: "enabled-task"})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, &CreateRequest{Command: "disabled-task", Enabled: &off})
		require.NoError(t, err)
	}

	all, total, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, 5, total)

	on := true
	enabled, total, err := svc.List(ctx, &ListOptions{Enabled: &on})
	require.NoError(t, err)
	assert.Len(t, enabled, 3)
	assert.Equal(t, 3, total, "total honors the enabled filter")

	page, total, err := svc.List(ctx, &ListOptions{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, 5, total)

	last, _, err := svc.List(ctx, &ListOptions{Page: 3, Size: 2})
	require.NoError(t, err)
	assert.Len(t, last, 1)
}
