package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/agenda/internal/scheduler"
	"github.com/ternarybob/arbor"
)

func newJobHandler(t *testing.T) (*JobHandler, *scheduler.Scheduler) {
	t.Helper()
	sched := scheduler.NewScheduler(2, nil, arbor.NewLogger())
	t.Cleanup(sched.Stop)
	return NewJobHandler(sched, arbor.NewLogger()), sched
}

func waitJobTerminal(t *testing.T, sched *scheduler.Scheduler, jobID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := sched.Get(jobID)
		require.NoError(t, err)
		if job.IsTerminal() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
}

func TestJobListHandler(t *testing.T) {
	h, sched := newJobHandler(t)

	jobID, err := sched.Submit(func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	waitJobTerminal(t, sched, jobID)

	rec := httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs  []*models.Job `json:"jobs"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, jobID, resp.Jobs[0].ID)

	// Status filter narrows the listing
	rec = httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/jobs?status_filter=failed", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)

	// Unknown status is a validation failure
	rec = httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/jobs?status_filter=exploded", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobGetHandler(t *testing.T) {
	h, sched := newJobHandler(t)

	jobID, err := sched.Submit(func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	waitJobTerminal(t, sched, jobID)

	rec := httptest.NewRecorder()
	h.GetHandler(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil), jobID)
	require.Equal(t, http.StatusOK, rec.Code)

	var job models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	rec = httptest.NewRecorder()
	h.GetHandler(rec, httptest.NewRequest(http.MethodGet, "/jobs/bogus", nil), "bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobCancelHandler(t *testing.T) {
	h, sched := newJobHandler(t)

	started := make(chan struct{})
	jobID, err := sched.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	rec := httptest.NewRecorder()
	h.CancelHandler(rec, httptest.NewRequest(http.MethodDelete, "/jobs/"+jobID, nil), jobID)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	waitJobTerminal(t, sched, jobID)
	job, err := sched.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCanceled, job.Status)

	// Idempotent on a terminal job
	rec = httptest.NewRecorder()
	h.CancelHandler(rec, httptest.NewRequest(http.MethodDelete, "/jobs/"+jobID, nil), jobID)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestJobStreamHandlerTerminalJob(t *testing.T) {
	h, sched := newJobHandler(t)

	jobID, err := sched.Submit(func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	waitJobTerminal(t, sched, jobID)

	rec := httptest.NewRecorder()
	h.StreamHandler(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+jobID+"/$stream", nil), jobID)

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: status")
	assert.Contains(t, body, `"status":"completed"`)
	assert.Contains(t, body, "event: end")

	// Exactly one terminal status frame
	assert.Equal(t, 1, strings.Count(body, "event: status"))
}

func TestJobStreamHandlerLiveJob(t *testing.T) {
	h, sched := newJobHandler(t)

	release := make(chan struct{})
	jobID, err := sched.Submit(func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		h.StreamHandler(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+jobID+"/$stream", nil), jobID)
		done <- rec
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case rec := <-done:
		body := rec.Body.String()
		assert.Contains(t, body, `"status":"completed"`)
		assert.Contains(t, body, "event: end")
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not terminate after the terminal snapshot")
	}
}

func TestJobStreamHandlerUnknownJob(t *testing.T) {
	h, _ := newJobHandler(t)

	rec := httptest.NewRecorder()
	h.StreamHandler(rec, httptest.NewRequest(http.MethodGet, "/jobs/01ARZ3NDEKTSV4RRFFQ69G5FAV/$stream", nil), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
