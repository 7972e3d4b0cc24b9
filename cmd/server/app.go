package main

import (
	"log/slog"
	"time"

	"github.com/sapbridge/agent-services/internal/agent"
	"github.com/sapbridge/agent-services/internal/config"
	"github.com/sapbridge/agent-services/internal/connector"
	"github.com/sapbridge/agent-services/internal/events"
	"github.com/sapbridge/agent-services/internal/metrics"
	"github.com/sapbridge/agent-services/internal/migration"
	"github.com/sapbridge/agent-services/internal/taskrunner"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	metrics *metrics.Collector

	taskRunner *taskrunner.Runner

	eventEmitter events.EventEmitter

	orchestrator     *agent.Orchestrator
	migrationService *migration.Service
	connectorService *connector.Service
}

// newApplication creates a new application instance with all dependencies
// initialized and the task runner's worker pool started.
func newApplication(cfg *config.Config, logger *slog.Logger) *application {
	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics.NewCollector(),
	}

	app.taskRunner = taskrunner.New(taskrunner.Config{
		WorkerCount:     cfg.Runner.WorkerCount,
		ShutdownTimeout: time.Duration(cfg.Runner.ShutdownTimeoutSeconds) * time.Second,
	}, logger, app.metrics)
	app.taskRunner.Start()

	app.orchestrator = agent.NewOrchestrator(app.taskRunner, logger, app.metrics)
	app.orchestrator.Register(agent.NewSAPAnalysisAgent())
	app.orchestrator.Register(agent.NewMigrationPlanningAgent())
	app.orchestrator.Register(agent.NewIntegrationDesignAgent())

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(agent.NewTaskRequestHandler(app.orchestrator, logger))
	app.eventEmitter = emitter

	app.migrationService = migration.NewService(app.taskRunner, logger, app.metrics)
	app.connectorService = connector.NewService(logger, app.metrics)

	logger.Info("Application initialized successfully",
		"workers", cfg.Runner.WorkerCount,
		"agents", len(app.orchestrator.AgentStatuses()))
	return app
}

// cleanup handles graceful shutdown of application resources. Stopping the
// runner waits for in-flight tasks up to the configured grace period; a
// timeout is reported but does not block process exit.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		if err := app.taskRunner.Stop(); err != nil {
			app.logger.Error("Task runner shutdown incomplete", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
