package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sapbridge/agent-services/internal/api/shared"
	"github.com/sapbridge/agent-services/internal/migration"
)

// StartMigrationRequest is the request body for starting a migration.
type StartMigrationRequest struct {
	Config map[string]any `json:"config" validate:"required"`
}

// StartMigrationResponse acknowledges a started migration.
type StartMigrationResponse struct {
	MigrationID string `json:"migration_id"`
	State       string `json:"state"`
}

// MigrationHandler handles migration-related HTTP requests.
type MigrationHandler struct {
	service *migration.Service
	logger  *slog.Logger
}

// NewMigrationHandler creates a new MigrationHandler.
func NewMigrationHandler(service *migration.Service, logger *slog.Logger) *MigrationHandler {
	return &MigrationHandler{
		service: service,
		logger:  logger,
	}
}

// StartMigration handles POST /api/migrations requests.
func (h *MigrationHandler) StartMigration(w http.ResponseWriter, r *http.Request) {
	var req StartMigrationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	id, err := h.service.Start(req.Config)
	if err != nil {
		h.logger.Error("failed to start migration", "error", err)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, StartMigrationResponse{
		MigrationID: id.String(),
		State:       string(migration.StatePending),
	})
}

// GetMigration handles GET /api/migrations/{id} requests.
func (h *MigrationHandler) GetMigration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid migration ID format")
		return
	}

	status, err := h.service.GetStatus(id)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// CancelMigration handles DELETE /api/migrations/{id} requests.
func (h *MigrationHandler) CancelMigration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid migration ID format")
		return
	}

	if !h.service.Cancel(id) {
		shared.RespondWithError(w, r, http.StatusConflict, "Migration is not running")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"migration_id": id.String(),
		"status":       "cancellation_requested",
	})
}
