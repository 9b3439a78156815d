package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/agenda/internal/scheduler"
	"github.com/ternarybob/arbor"
)

// JobHandler serves job records, cancellation, and the SSE status stream
type JobHandler struct {
	scheduler *scheduler.Scheduler
	logger    arbor.ILogger
}

// NewJobHandler creates a job handler
func NewJobHandler(sched *scheduler.Scheduler, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		scheduler: sched,
		logger:    logger,
	}
}

type jobListResponse struct {
	Jobs  []*models.Job `json:"jobs"`
	Count int           `json:"count"`
}

// ListHandler handles GET /jobs?status_filter=<state>
func (h *JobHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	filter := models.JobStatus(r.URL.Query().Get("status_filter"))
	if filter != "" && !models.IsValidJobStatus(filter) {
		WriteProblem(w, r, fmt.Errorf("%w: unknown status %q", common.ErrValidationFailed, filter))
		return
	}

	jobs := h.scheduler.List(filter)
	if jobs == nil {
		jobs = []*models.Job{}
	}
	WriteJSON(w, http.StatusOK, jobListResponse{Jobs: jobs, Count: len(jobs)})
}

// GetHandler handles GET /jobs/{id}
func (h *JobHandler) GetHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := common.ValidateID(id); err != nil {
		WriteProblem(w, r, err)
		return
	}

	job, err := h.scheduler.Get(id)
	if err != nil {
		WriteProblem(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// CancelHandler handles DELETE /jobs/{id}. Cancellation is cooperative
// and idempotent; the response carries the snapshot taken at request
// time, which may still show a non-terminal state.
func (h *JobHandler) CancelHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := common.ValidateID(id); err != nil {
		WriteProblem(w, r, err)
		return
	}

	job, err := h.scheduler.Cancel(id)
	if err != nil {
		WriteProblem(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, job)
}

// StreamHandler handles GET /jobs/{id}/$stream. It emits job snapshots
// as SSE events and ends the stream after the first terminal snapshot.
func (h *JobHandler) StreamHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := common.ValidateID(id); err != nil {
		WriteProblem(w, r, err)
		return
	}

	snapshots, release, err := h.scheduler.Subscribe(id)
	if err != nil {
		WriteProblem(w, r, err)
		return
	}
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteProblemStatus(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	h.logger.Debug().
		Str("job_id", id).
		Msg("SSE job stream opened")

	pingInterval := 15 * time.Second
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case snapshot, open := <-snapshots:
			if !open {
				h.sendEvent(w, flusher, "end", map[string]string{"job_id": id})
				h.logger.Debug().
					Str("job_id", id).
					Msg("SSE job stream closed after terminal snapshot")
				return
			}
			h.sendEvent(w, flusher, "status", snapshot)
			pingTicker.Reset(pingInterval)

		case <-pingTicker.C:
			h.sendEvent(w, flusher, "ping", map[string]interface{}{"timestamp": time.Now()})

		case <-r.Context().Done():
			h.logger.Debug().
				Str("job_id", id).
				Msg("SSE job stream client disconnected")
			return
		}
	}
}

// sendEvent writes a single SSE frame and flushes it
func (h *JobHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Warn().Err(err).Str("event", event).Msg("Failed to marshal SSE event")
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
