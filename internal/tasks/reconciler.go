// -----------------------------------------------------------------------
// Startup reconciler - disables orphaned function templates
// -----------------------------------------------------------------------

package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/agenda/internal/registry"
	"github.com/ternarybob/arbor"
)

// Reconciler validates persisted function templates against the callable
// registry once at startup. Templates whose command no longer resolves
// are flipped to disabled; they stay listed and can be re-enabled after
// the callable is restored.
type Reconciler struct {
	storage  interfaces.TaskStorage
	registry *registry.Registry
	logger   arbor.ILogger
}

// NewReconciler creates a startup reconciler
func NewReconciler(storage interfaces.TaskStorage, reg *registry.Registry, logger arbor.ILogger) *Reconciler {
	return &Reconciler{
		storage:  storage,
		registry: reg,
		logger:   logger,
	}
}

// Reconcile disables every enabled function template whose command is
// not registered. Returns the number of templates disabled.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	templates, err := r.storage.ListTasks(ctx, &interfaces.TaskListOptions{
		Kind: string(models.TaskKindFunction),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list function templates: %w", err)
	}

	disabled := 0
	for _, task := range templates {
		if !task.Enabled || r.registry.Has(task.Command) {
			continue
		}

		task.Enabled = false
		task.UpdatedAt = time.Now()
		if err := r.storage.SaveTask(ctx, task); err != nil {
			return disabled, fmt.Errorf("failed to disable task %s: %w", task.ID, err)
		}
		disabled++

		r.logger.Warn().
			Str("task_id", task.ID).
			Str("callable", task.Command).
			Msg("Disabled task template: callable is not registered")
	}

	if disabled > 0 {
		r.logger.Info().
			Int("disabled", disabled).
			Msg("Startup reconcile flagged orphaned function templates")
	}

	return disabled, nil
}
