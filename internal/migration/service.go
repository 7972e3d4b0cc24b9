// Package migration implements the SAP migration service: each migration is
// a simulated step pipeline executed as a single high-priority task on the
// shared task runner, with progress and per-step bookkeeping kept alongside
// the runner's own lifecycle tracking.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sapbridge/agent-services/internal/metrics"
	"github.com/sapbridge/agent-services/internal/taskrunner"
)

// Common errors returned by the Service
var (
	ErrMigrationNotFound = errors.New("migration not found")
)

// State is the lifecycle state of a migration.
type State string

// Possible migration states
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Status is a point-in-time view of one migration.
type Status struct {
	MigrationID    uuid.UUID      `json:"migration_id"`
	TaskID         uuid.UUID      `json:"task_id"`
	State          State          `json:"state"`
	Progress       int            `json:"progress"`
	StepsCompleted []string       `json:"steps_completed"`
	Error          string         `json:"error,omitempty"`
	Config         map[string]any `json:"config"`
}

// migrationRecord tracks one migration's bookkeeping. The runner task that
// executes the pipeline is the only writer after creation, except for the
// cancel flag.
type migrationRecord struct {
	mu             sync.Mutex
	id             uuid.UUID
	taskID         uuid.UUID
	state          State
	progress       int
	stepsCompleted []string
	errMsg         string
	config         map[string]any
	cancelled      bool
}

func (m *migrationRecord) status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps := make([]string, len(m.stepsCompleted))
	copy(steps, m.stepsCompleted)
	return Status{
		MigrationID:    m.id,
		TaskID:         m.taskID,
		State:          m.state,
		Progress:       m.progress,
		StepsCompleted: steps,
		Error:          m.errMsg,
		Config:         m.config,
	}
}

// Service manages SAP migration pipelines.
type Service struct {
	runner  *taskrunner.Runner
	logger  *slog.Logger
	metrics *metrics.Collector

	// stepDelay is how long each simulated pipeline step takes.
	stepDelay time.Duration

	mu         sync.Mutex
	migrations map[uuid.UUID]*migrationRecord
}

// NewService creates a migration Service executing on the given runner.
func NewService(runner *taskrunner.Runner, logger *slog.Logger, collector *metrics.Collector) *Service {
	return &Service{
		runner:     runner,
		logger:     logger.With("component", "migration_service"),
		metrics:    collector,
		stepDelay:  time.Second,
		migrations: make(map[uuid.UUID]*migrationRecord),
	}
}

// Start creates a migration record and submits its pipeline to the task
// runner at high priority. It returns the migration id immediately; progress
// is observable via GetStatus.
func (s *Service) Start(config map[string]any) (uuid.UUID, error) {
	record := &migrationRecord{
		id:     uuid.New(),
		state:  StatePending,
		config: config,
	}

	taskID, err := s.runner.Submit(
		"migration:"+record.id.String(),
		func(ctx context.Context) (any, error) {
			return s.runPipeline(ctx, record)
		},
		taskrunner.WithPriority(taskrunner.PriorityHigh),
		taskrunner.WithMaxRetries(0), // a failed pipeline is not safe to rerun blindly
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to submit migration pipeline: %w", err)
	}
	record.taskID = taskID

	s.mu.Lock()
	s.migrations[record.id] = record
	s.mu.Unlock()

	s.logger.Info("migration started", "migration_id", record.id, "task_id", taskID)
	s.metrics.Inc("migrations_started")
	return record.id, nil
}

// GetStatus returns the current status of the migration, or
// ErrMigrationNotFound for an unknown id.
func (s *Service) GetStatus(id uuid.UUID) (Status, error) {
	s.mu.Lock()
	record, ok := s.migrations[id]
	s.mu.Unlock()
	if !ok {
		return Status{}, fmt.Errorf("migration %s: %w", id, ErrMigrationNotFound)
	}
	return record.status(), nil
}

// Cancel requests cancellation of a running migration. The pipeline stops at
// the next step boundary; the runner task's bookkeeping is cancelled along
// with it. Returns false if the migration is unknown or already terminal.
func (s *Service) Cancel(id uuid.UUID) bool {
	s.mu.Lock()
	record, ok := s.migrations[id]
	s.mu.Unlock()
	if !ok {
		return false
	}

	record.mu.Lock()
	terminal := record.state == StateCompleted || record.state == StateFailed || record.state == StateCancelled
	if !terminal {
		record.cancelled = true
	}
	taskID := record.taskID
	record.mu.Unlock()
	if terminal {
		return false
	}

	// Mark the underlying runner task too so both views agree. The runner
	// only obliges while the task is active; a still-queued pipeline is
	// caught by the cancel flag when it eventually starts.
	s.runner.Cancel(taskID)

	s.logger.Info("migration cancellation requested", "migration_id", id)
	s.metrics.Inc("migrations_cancelled")
	return true
}

// pipelineStep is one simulated stage of a migration.
type pipelineStep struct {
	name string
	run  func(ctx context.Context, record *migrationRecord) error
}

// runPipeline executes the migration steps in order, updating progress after
// each one and honoring cancellation at step boundaries.
func (s *Service) runPipeline(ctx context.Context, record *migrationRecord) (any, error) {
	record.mu.Lock()
	if record.cancelled {
		record.state = StateCancelled
		record.mu.Unlock()
		return nil, nil
	}
	record.state = StateRunning
	record.mu.Unlock()

	steps := []pipelineStep{
		{name: "Validating source system", run: s.simulatedStep},
		{name: "Analyzing data structure", run: s.simulatedStep},
		{name: "Preparing migration plan", run: s.simulatedStep},
		{name: "Executing data migration", run: s.simulatedStep},
		{name: "Validating migrated data", run: s.simulatedStep},
		{name: "Finalizing migration", run: s.simulatedStep},
	}

	logger := s.logger.With("migration_id", record.id)
	for i, step := range steps {
		record.mu.Lock()
		cancelled := record.cancelled
		record.mu.Unlock()
		if cancelled {
			record.mu.Lock()
			record.state = StateCancelled
			record.mu.Unlock()
			logger.Info("migration cancelled", "completed_steps", i)
			return nil, nil
		}

		logger.Info("migration step", "step", step.name)
		if err := step.run(ctx, record); err != nil {
			record.mu.Lock()
			record.state = StateFailed
			record.errMsg = fmt.Sprintf("%s: %s", step.name, err)
			record.mu.Unlock()
			s.metrics.Inc("migrations_failed")
			return nil, fmt.Errorf("migration step %q failed: %w", step.name, err)
		}

		record.mu.Lock()
		record.stepsCompleted = append(record.stepsCompleted, step.name)
		record.progress = (i + 1) * 100 / len(steps)
		record.mu.Unlock()
	}

	record.mu.Lock()
	record.state = StateCompleted
	record.mu.Unlock()
	s.metrics.Inc("migrations_completed")
	logger.Info("migration completed")

	return map[string]any{
		"migration_id":    record.id.String(),
		"steps_completed": len(steps),
	}, nil
}

// simulatedStep stands in for real SAP migration work: a fixed delay that
// honors context cancellation.
func (s *Service) simulatedStep(ctx context.Context, record *migrationRecord) error {
	timer := time.NewTimer(s.stepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
