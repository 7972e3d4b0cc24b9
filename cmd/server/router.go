package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sapbridge/agent-services/internal/api"
	apiMiddleware "github.com/sapbridge/agent-services/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Add trace IDs for improved error handling

	// Create API handlers using the application's services
	taskHandler := api.NewTaskHandler(app.taskRunner, app.config.Runner.CompletedTaskListLimit, app.logger)
	agentHandler := api.NewAgentHandler(app.orchestrator, app.eventEmitter, app.logger)
	migrationHandler := api.NewMigrationHandler(app.migrationService, app.logger)
	connectorHandler := api.NewConnectorHandler(app.connectorService, app.logger)
	systemHandler := api.NewSystemHandler(app.metrics, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Task status and control endpoints
		r.Get("/tasks/active", taskHandler.GetActiveTasks)
		r.Get("/tasks/completed", taskHandler.GetCompletedTasks)
		r.Get("/tasks/queue", taskHandler.GetQueueStatus)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Post("/tasks/{id}/cancel", taskHandler.CancelTask)

		// Agent endpoints
		r.Get("/agents/status", agentHandler.GetAgentsStatus)
		r.Post("/agents/{id}/tasks", agentHandler.RunAgentTask)

		// Migration endpoints
		r.Post("/migrations", migrationHandler.StartMigration)
		r.Get("/migrations/{id}", migrationHandler.GetMigration)
		r.Delete("/migrations/{id}", migrationHandler.CancelMigration)

		// Connector endpoints
		r.Post("/connectors/sap/test", connectorHandler.TestConnection)
	})

	// Process-level endpoints
	r.Get("/health", systemHandler.Health)
	r.Get("/metrics", systemHandler.Metrics)

	return r
}
