package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapbridge/agent-services/internal/config"
)

func TestSetup_LevelFiltering(t *testing.T) {
	testCases := []struct {
		name       string
		level      string
		debugShown bool
	}{
		{name: "debug level passes debug records", level: "debug", debugShown: true},
		{name: "info level filters debug records", level: "info", debugShown: false},
		{name: "warn level filters debug records", level: "warn", debugShown: false},
		{name: "invalid level falls back to info", level: "loud", debugShown: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := setupWithWriter(config.ServerConfig{Port: 8001, LogLevel: tc.level}, &buf)
			require.NotNil(t, logger)

			logger.Debug("debug message")
			logger.Info("info message")

			output := buf.String()
			assert.Contains(t, output, "info message")
			if tc.debugShown {
				assert.Contains(t, output, "debug message")
			} else {
				assert.NotContains(t, output, "debug message")
			}
		})
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := setupWithWriter(config.ServerConfig{Port: 8001, LogLevel: "info"}, &buf)

	logger.Info("structured record", "task_id", "abc-123", "workers", 5)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "structured record", record["msg"])
	assert.Equal(t, "abc-123", record["task_id"])
	assert.Equal(t, float64(5), record["workers"])
	assert.Equal(t, "INFO", record["level"])
}
