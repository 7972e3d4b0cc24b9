package api

import (
	"log/slog"
	"net/http"

	"github.com/sapbridge/agent-services/internal/api/shared"
	"github.com/sapbridge/agent-services/internal/metrics"
)

// SystemHandler serves process-level endpoints: health and metrics.
type SystemHandler struct {
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(collector *metrics.Collector, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		metrics: collector,
		logger:  logger,
	}
}

// Health handles GET /health requests.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("Failed to write health check response", "error", err)
	}
}

// Metrics handles GET /metrics requests, returning a JSON snapshot of the
// process counters and gauges.
func (h *SystemHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.metrics.Snapshot())
}
