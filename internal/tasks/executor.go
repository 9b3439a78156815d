// -----------------------------------------------------------------------
// Task executor - snapshots a template and runs it as a scheduled job
// -----------------------------------------------------------------------

package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/agenda/internal/registry"
	"github.com/ternarybob/agenda/internal/scheduler"
	"github.com/ternarybob/arbor"
)

// Executor turns a task template into a scheduled job. Each execution
// snapshots the template, runs it (shell subprocess or registered
// callable), writes exactly one artifact, and links it to the job.
type Executor struct {
	storage   interfaces.StorageManager
	scheduler *scheduler.Scheduler
	registry  *registry.Registry
	logger    arbor.ILogger
}

// NewExecutor creates a task executor
func NewExecutor(storage interfaces.StorageManager, sched *scheduler.Scheduler, reg *registry.Registry, logger arbor.ILogger) *Executor {
	return &Executor{
		storage:   storage,
		scheduler: sched,
		registry:  reg,
		logger:    logger,
	}
}

// Execute submits the template identified by taskID as a new job and
// returns the job ID immediately. Precondition violations (missing or
// disabled template, unconfigured collaborators) surface synchronously;
// no job is created for them.
func (e *Executor) Execute(ctx context.Context, taskID string) (string, error) {
	if err := common.ValidateID(taskID); err != nil {
		return "", err
	}
	if e.scheduler == nil || e.storage == nil {
		return "", fmt.Errorf("%w: scheduler/artifacts not available", common.ErrConflict)
	}

	task, err := e.storage.TaskStorage().GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	if !task.Enabled {
		return "", fmt.Errorf("%w: cannot execute disabled task %s", common.ErrValidationFailed, taskID)
	}

	// The snapshot is what executes and what lands in the artifact;
	// template mutations after this point never rewrite history.
	snapshot := task.Snapshot()

	idCh := make(chan string, 1)
	jobID, err := e.scheduler.Submit(func(jobCtx context.Context) error {
		return e.run(jobCtx, <-idCh, snapshot)
	})
	if err != nil {
		return "", err
	}
	idCh <- jobID

	e.logger.Info().
		Str("task_id", taskID).
		Str("job_id", jobID).
		Str("kind", string(snapshot.Kind)).
		Msg("Task execution submitted")

	return jobID, nil
}

// run is the work closure body. A nil return completes the job, a
// context.Canceled return cancels it, anything else fails it. Canceled
// work writes no artifact; every other outcome writes exactly one.
func (e *Executor) run(jobCtx context.Context, jobID string, snapshot *models.Task) error {
	if jobCtx.Err() != nil {
		return jobCtx.Err()
	}

	var payload interface{}
	var err error
	switch snapshot.Kind {
	case models.TaskKindShell:
		payload, err = e.runShell(jobCtx, snapshot)
	default:
		payload, err = e.runFunction(jobCtx, snapshot)
	}
	if err != nil {
		return err
	}

	data, err := models.MarshalPayload(payload)
	if err != nil {
		return err
	}

	// The artifact write survives a cancellation that lands after the
	// work itself finished.
	artifact, err := e.storage.ArtifactStorage().SaveArtifact(context.Background(), data, nil, 0)
	if err != nil {
		return fmt.Errorf("artifact write failed: %w", err)
	}

	if err := e.scheduler.SetArtifact(jobID, artifact.ID); err != nil {
		return err
	}
	return nil
}

// runShell executes the snapshot's command through the system shell and
// captures both streams and the exit code. A non-zero exit code is data,
// not an error; only a spawn failure propagates.
func (e *Executor) runShell(jobCtx context.Context, snapshot *models.Task) (interface{}, error) {
	cmd := exec.CommandContext(jobCtx, "/bin/sh", "-c", snapshot.Command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if jobCtx.Err() != nil {
		return nil, context.Canceled
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// The shell itself could not be spawned
			return nil, fmt.Errorf("failed to spawn shell: %w", runErr)
		}
	}

	return &models.ShellExecution{
		Task:     snapshot,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}

// runFunction resolves the snapshot's command in the callable registry,
// binds its parameters, and invokes it. Business-level problems (missing
// callable, bind failure, callable error or panic) become the artifact's
// error payload and the job still completes.
func (e *Executor) runFunction(jobCtx context.Context, snapshot *models.Task) (interface{}, error) {
	callable, err := e.registry.Get(snapshot.Command)
	if err != nil {
		return functionError(snapshot, "not-found",
			fmt.Sprintf("callable %s is not registered", snapshot.Command), ""), nil
	}

	caps := registry.Capabilities{
		Storage:   e.storage,
		Artifacts: e.storage.ArtifactStorage(),
		Scheduler: e.scheduler,
	}
	args, release, err := registry.Bind(callable, snapshot.Parameters, caps)
	if err != nil {
		return functionError(snapshot, errorKind(err), err.Error(), ""), nil
	}
	defer release()

	result, callErr, traceback := invoke(jobCtx, callable.Fn, args)

	if callErr != nil && errors.Is(callErr, context.Canceled) {
		return nil, context.Canceled
	}
	if callErr != nil {
		return functionError(snapshot, errorType(callErr), errorMessage(callErr), traceback), nil
	}

	return &models.FunctionExecution{
		Task:   snapshot,
		Result: result,
	}, nil
}

// invoke runs the callable with a panic boundary. A panic is a
// business-level failure of the callable, not of the scheduler.
func invoke(ctx context.Context, fn registry.Func, args map[string]interface{}) (result interface{}, err error, traceback string) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)
			result = nil
			err = fmt.Errorf("%v", r)
			traceback = string(buf[:n])
		}
	}()
	result, err = fn(ctx, args)
	if err != nil && traceback == "" {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		traceback = string(buf[:n])
	}
	return result, err, traceback
}

func functionError(snapshot *models.Task, errType, message, traceback string) *models.FunctionExecution {
	return &models.FunctionExecution{
		Task: snapshot,
		Error: &models.FunctionError{
			Type:      errType,
			Message:   message,
			Traceback: traceback,
		},
	}
}

// errorType labels a callable error for the artifact. Typed errors carry
// their own label; anything else falls back to the Go type name.
func errorType(err error) string {
	var typed *registry.Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	name := fmt.Sprintf("%T", err)
	name = strings.TrimPrefix(name, "*")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func errorMessage(err error) string {
	var typed *registry.Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	return err.Error()
}

// errorKind maps a bind failure to its stable kind label
func errorKind(err error) string {
	switch {
	case errors.Is(err, common.ErrValidationFailed):
		return "validation-failed"
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrNotFound):
		return "not-found"
	default:
		return "error"
	}
}
