// -----------------------------------------------------------------------
// Scheduler - bounded-concurrency async job execution
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/semaphore"
)

// Work is a unit of execution submitted to the scheduler. It must honor
// ctx cancellation and return context.Canceled (possibly wrapped) when it
// stops because of it. A nil return completes the job; any other error
// fails it.
type Work func(ctx context.Context) error

// subscriberBuffer bounds per-subscriber snapshot channels. When a slow
// consumer falls behind, the oldest intermediate snapshot is dropped so
// the terminal snapshot always gets through.
const subscriberBuffer = 16

type jobEntry struct {
	job         *models.Job
	cancel      context.CancelFunc
	subscribers map[string]chan *models.Job
}

// Scheduler runs submitted work under a concurrency cap with FIFO
// admission. Job records live in memory only and are lost on restart.
type Scheduler struct {
	mu         sync.Mutex
	jobs       map[string]*jobEntry
	order      []string
	sem        *semaphore.Weighted // nil when unbounded
	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool

	events interfaces.EventService
	logger arbor.ILogger
}

// NewScheduler creates a scheduler admitting at most maxConcurrency jobs
// at a time. A maxConcurrency of zero or less means unbounded.
func NewScheduler(maxConcurrency int, events interfaces.EventService, logger arbor.ILogger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	var sem *semaphore.Weighted
	if maxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(maxConcurrency))
	}

	logger.Info().
		Int("max_concurrency", maxConcurrency).
		Msg("Scheduler initialized")

	return &Scheduler{
		jobs:       make(map[string]*jobEntry),
		sem:        sem,
		baseCtx:    ctx,
		baseCancel: cancel,
		events:     events,
		logger:     logger,
	}
}

// Submit enqueues work and returns the new job's ID immediately. The job
// starts in pending and transitions to running once admitted under the
// concurrency cap, in submission order.
func (s *Scheduler) Submit(work Work) (string, error) {
	if work == nil {
		return "", fmt.Errorf("%w: work cannot be nil", common.ErrValidationFailed)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: scheduler is stopped", common.ErrConflict)
	}

	job := &models.Job{
		ID:          common.NewID(),
		Status:      models.JobStatusPending,
		SubmittedAt: time.Now(),
	}

	jobCtx, jobCancel := context.WithCancel(s.baseCtx)
	entry := &jobEntry{
		job:         job,
		cancel:      jobCancel,
		subscribers: make(map[string]chan *models.Job),
	}
	s.jobs[job.ID] = entry
	s.order = append(s.order, job.ID)
	s.wg.Add(1)
	s.mu.Unlock()

	s.publish(interfaces.EventJobSubmitted, job.Clone())

	common.SafeGo(s.logger, "scheduler-job-"+job.ID, func() {
		s.run(entry, jobCtx, work)
	})

	s.logger.Debug().
		Str("job_id", job.ID).
		Msg("Job submitted")

	return job.ID, nil
}

func (s *Scheduler) run(entry *jobEntry, jobCtx context.Context, work Work) {
	defer s.wg.Done()
	defer entry.cancel()

	if s.sem != nil {
		// Acquire blocks FIFO behind earlier submissions; a cancel while
		// still pending aborts the wait and the job never runs.
		if err := s.sem.Acquire(jobCtx, 1); err != nil {
			s.finalizeCanceled(entry)
			return
		}
		defer s.sem.Release(1)
	} else if jobCtx.Err() != nil {
		s.finalizeCanceled(entry)
		return
	}

	s.mu.Lock()
	entry.job.MarkStarted()
	snapshot := entry.job.Clone()
	s.broadcastLocked(entry, snapshot)
	s.mu.Unlock()
	s.publish(interfaces.EventJobStarted, snapshot)

	err, traceback := runProtected(jobCtx, work)

	s.mu.Lock()
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		entry.job.MarkCanceled()
	case err == nil:
		entry.job.MarkCompleted()
	default:
		entry.job.MarkFailed(err.Error(), traceback)
	}
	terminal := entry.job.Clone()
	s.broadcastLocked(entry, terminal)
	s.closeSubscribersLocked(entry)
	s.mu.Unlock()

	switch terminal.Status {
	case models.JobStatusCompleted:
		s.publish(interfaces.EventJobCompleted, terminal)
	case models.JobStatusCanceled:
		s.publish(interfaces.EventJobCanceled, terminal)
	default:
		s.publish(interfaces.EventJobFailed, terminal)
		s.logger.Warn().
			Str("job_id", terminal.ID).
			Str("error", terminal.Error).
			Msg("Job failed")
	}
}

// runProtected executes work and converts a panic into an error carrying
// the goroutine stack.
func runProtected(ctx context.Context, work Work) (err error, traceback string) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("panic: %v", r)
			traceback = string(buf[:n])
		}
	}()
	return work(ctx), ""
}

func (s *Scheduler) finalizeCanceled(entry *jobEntry) {
	s.mu.Lock()
	entry.job.MarkCanceled()
	terminal := entry.job.Clone()
	s.broadcastLocked(entry, terminal)
	s.closeSubscribersLocked(entry)
	s.mu.Unlock()
	s.publish(interfaces.EventJobCanceled, terminal)
}

// Get returns a snapshot of the job record
func (s *Scheduler) Get(jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", common.ErrNotFound, jobID)
	}
	return entry.job.Clone(), nil
}

// List returns snapshots of all jobs in submission order, optionally
// filtered by status
func (s *Scheduler) List(statusFilter models.JobStatus) []*models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*models.Job, 0, len(s.order))
	for _, id := range s.order {
		entry := s.jobs[id]
		if statusFilter != "" && entry.job.Status != statusFilter {
			continue
		}
		result = append(result, entry.job.Clone())
	}
	return result
}

// Cancel requests cooperative cancellation of a job. A pending job is
// canceled before it ever runs; a running job's context is canceled and
// the work decides when to stop. Canceling a terminal job is a no-op.
func (s *Scheduler) Cancel(jobID string) (*models.Job, error) {
	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: job %s", common.ErrNotFound, jobID)
	}
	snapshot := entry.job.Clone()
	terminal := entry.job.IsTerminal()
	s.mu.Unlock()

	if !terminal {
		entry.cancel()
		s.logger.Info().
			Str("job_id", jobID).
			Msg("Job cancellation requested")
	}
	return snapshot, nil
}

// SetArtifact attaches an artifact reference to a job. The executor calls
// this after persisting the artifact and before the job turns terminal.
func (s *Scheduler) SetArtifact(jobID, artifactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: job %s", common.ErrNotFound, jobID)
	}
	id := artifactID
	entry.job.ArtifactID = &id
	return nil
}

// Subscribe returns a channel of job snapshots. The stream always ends
// with exactly one terminal snapshot followed by channel close; a job
// that is already terminal yields that single snapshot immediately. The
// returned release function detaches the subscriber.
func (s *Scheduler) Subscribe(jobID string) (<-chan *models.Job, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[jobID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: job %s", common.ErrNotFound, jobID)
	}

	if entry.job.IsTerminal() {
		ch := make(chan *models.Job, 1)
		ch <- entry.job.Clone()
		close(ch)
		return ch, func() {}, nil
	}

	key := uuid.New().String()
	ch := make(chan *models.Job, subscriberBuffer)
	ch <- entry.job.Clone()
	entry.subscribers[key] = ch

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := entry.subscribers[key]; ok {
			delete(entry.subscribers, key)
			close(sub)
		}
	}
	return ch, release, nil
}

// broadcastLocked fans a snapshot out to subscribers; callers hold s.mu.
func (s *Scheduler) broadcastLocked(entry *jobEntry, snapshot *models.Job) {
	for _, ch := range entry.subscribers {
		for {
			select {
			case ch <- snapshot:
			default:
				// Full buffer: drop the oldest snapshot and retry so the
				// newest (possibly terminal) one is never lost.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (s *Scheduler) closeSubscribersLocked(entry *jobEntry) {
	for key, ch := range entry.subscribers {
		delete(entry.subscribers, key)
		close(ch)
	}
}

func (s *Scheduler) publish(eventType interfaces.EventType, job *models.Job) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.Background(), interfaces.Event{
		Type:    eventType,
		Payload: job,
	}); err != nil {
		s.logger.Warn().
			Err(err).
			Str("event_type", string(eventType)).
			Msg("Failed to publish job event")
	}
}

// Stop cancels all non-terminal jobs and waits for in-flight work to
// finish. Further submissions are rejected.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.baseCancel()
	s.wg.Wait()

	s.logger.Info().Msg("Scheduler stopped")
}
