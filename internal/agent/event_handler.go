package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sapbridge/agent-services/internal/events"
	"github.com/sapbridge/agent-services/internal/taskrunner"
)

// TaskRequestHandler implements the events.EventHandler interface, turning
// agent-task request events into task runner submissions via the
// orchestrator. Emitters (the HTTP layer) stay decoupled from both the
// orchestrator and the runner.
type TaskRequestHandler struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewTaskRequestHandler creates an event handler dispatching onto the given
// orchestrator.
func NewTaskRequestHandler(orchestrator *Orchestrator, logger *slog.Logger) *TaskRequestHandler {
	return &TaskRequestHandler{
		orchestrator: orchestrator,
		logger:       logger.With("component", "agent_task_request_handler"),
	}
}

// agentTaskPayload is the expected payload of a TypeAgentTask event.
type agentTaskPayload struct {
	AgentID string         `json:"agent_id"`
	Params  map[string]any `json:"params"`
}

// HandleEvent processes agent task request events. Events of other types are
// ignored so additional handlers can own them.
func (h *TaskRequestHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != events.TypeAgentTask {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload agentTaskPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	priority, err := taskrunner.ParsePriority(event.Priority)
	if err != nil {
		h.logger.Error("invalid priority on event",
			"error", err,
			"priority", event.Priority,
			"event_id", event.ID)
		return fmt.Errorf("invalid priority: %w", err)
	}

	taskID, err := h.orchestrator.RunTask(payload.AgentID, priority, payload.Params)
	if err != nil {
		h.logger.Error("failed to dispatch agent task",
			"error", err,
			"agent_id", payload.AgentID,
			"event_id", event.ID)
		return fmt.Errorf("failed to dispatch agent task: %w", err)
	}

	h.logger.Info("agent task dispatched",
		"task_id", taskID,
		"agent_id", payload.AgentID,
		"event_id", event.ID)
	return nil
}

// Ensure TaskRequestHandler implements events.EventHandler
var _ events.EventHandler = (*TaskRequestHandler)(nil)
