package api

import (
	"log/slog"
	"net/http"

	"github.com/sapbridge/agent-services/internal/api/shared"
	"github.com/sapbridge/agent-services/internal/connector"
)

// ConnectorHandler handles SAP connection test requests.
type ConnectorHandler struct {
	service *connector.Service
	logger  *slog.Logger
}

// NewConnectorHandler creates a new ConnectorHandler.
func NewConnectorHandler(service *connector.Service, logger *slog.Logger) *ConnectorHandler {
	return &ConnectorHandler{
		service: service,
		logger:  logger,
	}
}

// TestConnection handles POST /api/connectors/sap/test requests.
func (h *ConnectorHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var cfg connector.Config
	if err := shared.DecodeJSON(r, &cfg); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(cfg); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.service.TestConnection(r.Context(), cfg)
	if err != nil {
		h.logger.Error("connection test aborted", "error", err, "type", cfg.Type)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
