// -----------------------------------------------------------------------
// Artifact - Immutable JSON execution record
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Artifact is an immutable JSON record persisted by an execution.
// Payload bytes are stored verbatim; artifacts are created once and never
// semantically mutated. ParentID and Level support hierarchical grouping
// (level 0 for roots).
type Artifact struct {
	ID        string          `json:"id"`
	ParentID  *string         `json:"parent_id,omitempty"`
	Level     int             `json:"level"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validate validates the artifact
func (a *Artifact) Validate() error {
	if a.ID == "" {
		return errors.New("artifact ID is required")
	}
	if a.Level < 0 {
		return errors.New("artifact level cannot be negative")
	}
	return nil
}

// ShellExecution is the artifact payload written for a shell task.
// A non-zero exit code does not mark the job failed; it is recorded here.
type ShellExecution struct {
	Task     *Task  `json:"task"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// FunctionExecution is the artifact payload written for a function task.
// Exactly one of Result and Error is non-null.
type FunctionExecution struct {
	Task   *Task          `json:"task"`
	Result interface{}    `json:"result"`
	Error  *FunctionError `json:"error"`
}

// FunctionError describes a business-level failure of a function task:
// a missing callable, a parameter binding failure, or an error raised by
// the callable itself. Jobs carrying a FunctionError still complete.
type FunctionError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Traceback string `json:"traceback"`
}

// MarshalPayload serializes an artifact payload for storage
func MarshalPayload(payload interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact payload: %w", err)
	}
	return data, nil
}
