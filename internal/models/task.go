package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TaskKind represents how a task's command is executed
type TaskKind string

// TaskKind constants
const (
	TaskKindShell    TaskKind = "shell"    // Command is run through the system shell
	TaskKindFunction TaskKind = "function" // Command names a registered callable
)

// IsValidTaskKind checks if a given TaskKind is one of the valid constants
func IsValidTaskKind(kind TaskKind) bool {
	switch kind {
	case TaskKindShell, TaskKindFunction:
		return true
	default:
		return false
	}
}

// Task represents a reusable task template.
//
// Command is either a shell invocation (kind=shell) or the name of a
// registered callable (kind=function). Parameters are interpreted only for
// function tasks. A function task's command should resolve in the callable
// registry at execution time; this is not enforced at write time but is
// checked by the startup reconciler and re-checked on execution.
type Task struct {
	ID         string                 `json:"id"`
	Command    string                 `json:"command"`
	Kind       TaskKind               `json:"kind"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Enabled    bool                   `json:"enabled"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Validate validates the task template
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task ID is required")
	}
	if t.Command == "" {
		return errors.New("task command is required")
	}
	if !IsValidTaskKind(t.Kind) {
		return fmt.Errorf("invalid task kind: %s (must be one of: shell, function)", t.Kind)
	}
	return nil
}

// Snapshot returns a deep value-copy of the task taken at execution start.
// Later template mutations never affect a snapshot.
func (t *Task) Snapshot() *Task {
	snap := *t

	if t.Parameters != nil {
		// JSON round-trip gives a deep copy of nested parameter values
		data, err := json.Marshal(t.Parameters)
		if err == nil {
			var params map[string]interface{}
			if json.Unmarshal(data, &params) == nil {
				snap.Parameters = params
			}
		}
	}

	return &snap
}
