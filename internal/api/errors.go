package api

import (
	"errors"
	"net/http"

	"github.com/sapbridge/agent-services/internal/agent"
	"github.com/sapbridge/agent-services/internal/migration"
	"github.com/sapbridge/agent-services/internal/taskrunner"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, taskrunner.ErrTaskNotFound),
		errors.Is(err, migration.ErrMigrationNotFound),
		errors.Is(err, agent.ErrAgentNotFound):
		return http.StatusNotFound

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, taskrunner.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, migration.ErrMigrationNotFound):
		return "Migration not found"
	case errors.Is(err, agent.ErrAgentNotFound):
		return "Agent not found"
	default:
		return "An unexpected error occurred"
	}
}
