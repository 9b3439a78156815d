// -----------------------------------------------------------------------
// App - dependency wiring for the agenda service
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/handlers"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/registry"
	"github.com/ternarybob/agenda/internal/scheduler"
	"github.com/ternarybob/agenda/internal/services/events"
	storagebadger "github.com/ternarybob/agenda/internal/storage/badger"
	"github.com/ternarybob/agenda/internal/tasks"
	"github.com/ternarybob/arbor"
)

// App holds all application dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService
	Scheduler      *scheduler.Scheduler
	Registry       *registry.Registry
	TaskService    *tasks.Service
	Executor       *tasks.Executor

	TaskHandler     *handlers.TaskHandler
	JobHandler      *handlers.JobHandler
	ArtifactHandler *handlers.ArtifactHandler
	APIHandler      *handlers.APIHandler
	WSHandler       *handlers.WebSocketHandler
}

// New wires the application together. The callable registry must already
// be populated; startup reconciliation runs against it here, before any
// work can be admitted.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger, reg *registry.Registry) (*App, error) {
	storageManager, err := storagebadger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	eventService := events.NewService(logger)
	sched := scheduler.NewScheduler(config.Scheduler.MaxConcurrency, eventService, logger)

	taskService := tasks.NewService(storageManager.TaskStorage(), logger)
	executor := tasks.NewExecutor(storageManager, sched, reg, logger)

	reconciler := tasks.NewReconciler(storageManager.TaskStorage(), reg, logger)
	if _, err := reconciler.Reconcile(ctx); err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("startup reconcile failed: %w", err)
	}

	a := &App{
		Config:         config,
		Logger:         logger,
		StorageManager: storageManager,
		EventService:   eventService,
		Scheduler:      sched,
		Registry:       reg,
		TaskService:    taskService,
		Executor:       executor,

		TaskHandler:     handlers.NewTaskHandler(taskService, executor, logger),
		JobHandler:      handlers.NewJobHandler(sched, logger),
		ArtifactHandler: handlers.NewArtifactHandler(storageManager.ArtifactStorage(), logger),
		APIHandler:      handlers.NewAPIHandler(logger),
		WSHandler:       handlers.NewWebSocketHandler(eventService, logger),
	}

	logger.Info().
		Int("callables", len(reg.List())).
		Int("max_concurrency", config.Scheduler.MaxConcurrency).
		Msg("Application initialized")

	return a, nil
}

// Close shuts the application down: scheduler first so no work is in
// flight when the event bus and database go away.
func (a *App) Close() error {
	a.Scheduler.Stop()

	if err := a.EventService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close event service")
	}

	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
