package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sapbridge/agent-services/internal/agent"
	"github.com/sapbridge/agent-services/internal/api/shared"
	"github.com/sapbridge/agent-services/internal/events"
)

// RunAgentTaskRequest is the request body for starting an agent task.
type RunAgentTaskRequest struct {
	Priority string         `json:"priority" validate:"omitempty,oneof=urgent high medium low"`
	Params   map[string]any `json:"params"`
}

// RunAgentTaskResponse acknowledges an accepted agent task request. The
// resulting task appears in the runner's tables under "agent:<agent_id>"
// once the event handler has dispatched it.
type RunAgentTaskResponse struct {
	EventID string `json:"event_id"`
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
}

// AgentHandler handles agent-related HTTP requests. Task execution requests
// are published as events rather than dispatched directly, keeping the HTTP
// layer decoupled from the orchestrator.
type AgentHandler struct {
	orchestrator *agent.Orchestrator
	emitter      events.EventEmitter
	logger       *slog.Logger
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(orchestrator *agent.Orchestrator, emitter events.EventEmitter, logger *slog.Logger) *AgentHandler {
	return &AgentHandler{
		orchestrator: orchestrator,
		emitter:      emitter,
		logger:       logger,
	}
}

// GetAgentsStatus handles GET /api/agents/status requests.
func (h *AgentHandler) GetAgentsStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.orchestrator.AgentStatuses())
}

// RunAgentTask handles POST /api/agents/{id}/tasks requests.
func (h *AgentHandler) RunAgentTask(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")

	var req RunAgentTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	event, err := events.NewTaskRequestEvent(events.TypeAgentTask, req.Priority, map[string]any{
		"agent_id": agentID,
		"params":   req.Params,
	})
	if err != nil {
		h.logger.Error("failed to build task request event", "error", err, "agent_id", agentID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to schedule agent task")
		return
	}

	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		h.logger.Error("failed to emit task request event", "error", err, "agent_id", agentID)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	// Processing happens asynchronously; the event id lets clients correlate
	// the dispatched task in the runner's tables.
	shared.RespondWithJSON(w, r, http.StatusAccepted, RunAgentTaskResponse{
		EventID: event.ID.String(),
		AgentID: agentID,
		Status:  "accepted",
	})
}
