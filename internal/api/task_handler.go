package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sapbridge/agent-services/internal/api/shared"
	"github.com/sapbridge/agent-services/internal/taskrunner"
)

// TaskHandler exposes the task runner's status tables over HTTP.
type TaskHandler struct {
	runner       *taskrunner.Runner
	defaultLimit int
	logger       *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. defaultLimit caps the completed
// task listing when the client does not pass one.
func NewTaskHandler(runner *taskrunner.Runner, defaultLimit int, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		runner:       runner,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// GetTask handles GET /api/tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	snap, err := h.runner.GetTaskStatus(id)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snap)
}

// GetActiveTasks handles GET /api/tasks/active requests.
func (h *TaskHandler) GetActiveTasks(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.runner.GetActiveTasks())
}

// GetCompletedTasks handles GET /api/tasks/completed requests. An optional
// "limit" query parameter overrides the configured default.
func (h *TaskHandler) GetCompletedTasks(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.runner.GetCompletedTasks(limit))
}

// GetQueueStatus handles GET /api/tasks/queue requests.
func (h *TaskHandler) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.runner.GetQueueStatus())
}

// CancelTask handles POST /api/tasks/{id}/cancel requests. Cancellation only
// succeeds for tasks currently claimed by a worker; queued tasks cannot be
// cancelled and will still run.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	if !h.runner.Cancel(id) {
		shared.RespondWithError(w, r, http.StatusConflict, "Task is not active and cannot be cancelled")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"task_id":   id,
		"cancelled": true,
	})
}
