package models

import (
	"time"
)

// JobStatus represents the state of a scheduled job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// IsValidJobStatus checks if a given JobStatus is one of the valid constants
func IsValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Job is the scheduler's per-submission bookkeeping record.
//
// Lifecycle: created in pending; pending -> running when admitted under the
// concurrency cap; running -> completed on success, running -> failed on an
// error escaping the work closure, pending/running -> canceled on explicit
// cancellation. Terminal states are immutable. Jobs are in-memory only and
// are not persisted across restarts.
type Job struct {
	ID             string     `json:"id"`
	Status         JobStatus  `json:"status"`
	ArtifactID     *string    `json:"artifact_id,omitempty"`
	Error          string     `json:"error,omitempty"`
	ErrorTraceback string     `json:"error_traceback,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// MarkStarted marks the job as admitted and running
func (j *Job) MarkStarted() {
	j.Status = JobStatusRunning
	now := time.Now()
	j.StartedAt = &now
}

// MarkCompleted marks the job as completed
func (j *Job) MarkCompleted() {
	j.Status = JobStatusCompleted
	now := time.Now()
	j.FinishedAt = &now
}

// MarkFailed marks the job as failed with an error message and traceback
func (j *Job) MarkFailed(errorMsg, traceback string) {
	j.Status = JobStatusFailed
	j.Error = errorMsg
	j.ErrorTraceback = traceback
	now := time.Now()
	j.FinishedAt = &now
}

// MarkCanceled marks the job as canceled
func (j *Job) MarkCanceled() {
	j.Status = JobStatusCanceled
	now := time.Now()
	j.FinishedAt = &now
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusFailed ||
		j.Status == JobStatusCanceled
}

// Clone returns a snapshot copy of the job record
func (j *Job) Clone() *Job {
	clone := *j
	if j.ArtifactID != nil {
		id := *j.ArtifactID
		clone.ArtifactID = &id
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		clone.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		clone.FinishedAt = &t
	}
	return &clone
}
