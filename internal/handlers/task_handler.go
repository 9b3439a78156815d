package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/agenda/internal/tasks"
	"github.com/ternarybob/arbor"
)

// TaskHandler serves the task-template CRUD surface and $execute
type TaskHandler struct {
	service  *tasks.Service
	executor *tasks.Executor
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewTaskHandler creates a task handler
func NewTaskHandler(service *tasks.Service, executor *tasks.Executor, logger arbor.ILogger) *TaskHandler {
	return &TaskHandler{
		service:  service,
		executor: executor,
		validate: validator.New(),
		logger:   logger,
	}
}

// taskListResponse is the paginated wrapper for template listings
type taskListResponse struct {
	Tasks []*models.Task `json:"tasks"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
	Total int            `json:"total"`
}

// executeResponse acknowledges an accepted execution
type executeResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// CreateHandler handles POST /tasks
func (h *TaskHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req tasks.CreateRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteProblem(w, r, fmt.Errorf("%w: %v", common.ErrValidationFailed, err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteProblem(w, r, fmt.Errorf("%w: %v", common.ErrValidationFailed, err))
		return
	}

	task, err := h.service.Create(r.Context(), &req)
	if err != nil {
		WriteProblem(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, task)
}

// ListHandler handles GET /tasks
func (h *TaskHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	page, size := GetPaginationParams(r)
	opts := &tasks.ListOptions{
		Enabled: GetBoolParam(r, "enabled"),
		Page:    page,
		Size:    size,
	}

	list, total, err := h.service.List(r.Context(), opts)
	if err != nil {
		WriteProblem(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Task{}
	}

	WriteJSON(w, http.StatusOK, taskListResponse{
		Tasks: list,
		Page:  page,
		Size:  size,
		Total: total,
	})
}

// GetHandler handles GET /tasks/{id}
func (h *TaskHandler) GetHandler(w http.ResponseWriter, r *http.Request, id string) {
	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		WriteProblem(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}

// UpdateHandler handles PUT /tasks/{id}
func (h *TaskHandler) UpdateHandler(w http.ResponseWriter, r *http.Request, id string) {
	var req tasks.UpdateRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteProblem(w, r, fmt.Errorf("%w: %v", common.ErrValidationFailed, err))
		return
	}

	task, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		WriteProblem(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}

// DeleteHandler handles DELETE /tasks/{id}
func (h *TaskHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		WriteProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExecuteHandler handles POST /tasks/{id}/$execute. The job is submitted
// asynchronously; the response acknowledges acceptance only.
func (h *TaskHandler) ExecuteHandler(w http.ResponseWriter, r *http.Request, id string) {
	jobID, err := h.executor.Execute(r.Context(), id)
	if err != nil {
		WriteProblem(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, executeResponse{
		JobID:   jobID,
		Message: fmt.Sprintf("task %s execution started", id),
	})
}
