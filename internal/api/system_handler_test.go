package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapbridge/agent-services/internal/metrics"
)

func TestSystemHandler_Health(t *testing.T) {
	t.Parallel()

	handler := NewSystemHandler(metrics.NewCollector(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.Health(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestSystemHandler_Metrics(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()
	collector.Inc("tasks_submitted")
	collector.Add("tasks_completed", 4)
	collector.SetGauge("queue_depth", 2)

	handler := NewSystemHandler(collector, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.Metrics(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Counters["tasks_submitted"])
	assert.Equal(t, int64(4), snap.Counters["tasks_completed"])
	assert.Equal(t, float64(2), snap.Gauges["queue_depth"])
}
