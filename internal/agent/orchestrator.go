package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sapbridge/agent-services/internal/metrics"
	"github.com/sapbridge/agent-services/internal/taskrunner"
)

// ErrAgentNotFound is returned when a task references an unregistered agent.
var ErrAgentNotFound = errors.New("agent not found")

// Agent status values as reported by the orchestrator.
const (
	agentStatusIdle    = "idle"
	agentStatusRunning = "running"
	agentStatusError   = "error"
)

type agentState struct {
	status       string
	lastActivity *time.Time
}

// Orchestrator manages the registered agents and dispatches their work
// through the task runner, so agent executions share the same pool, retry
// policy, and status reporting as every other background task.
type Orchestrator struct {
	runner  *taskrunner.Runner
	logger  *slog.Logger
	metrics *metrics.Collector

	mu     sync.Mutex
	agents map[string]Agent
	states map[string]*agentState
}

// NewOrchestrator creates an Orchestrator dispatching onto the given runner.
func NewOrchestrator(runner *taskrunner.Runner, logger *slog.Logger, collector *metrics.Collector) *Orchestrator {
	return &Orchestrator{
		runner:  runner,
		logger:  logger.With("component", "agent_orchestrator"),
		metrics: collector,
		agents:  make(map[string]Agent),
		states:  make(map[string]*agentState),
	}
}

// Register adds an agent to the orchestrator. Registering the same id twice
// replaces the previous agent.
func (o *Orchestrator) Register(a Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[a.ID()] = a
	o.states[a.ID()] = &agentState{status: agentStatusIdle}
	o.logger.Info("agent registered", "agent_id", a.ID(), "name", a.Name())
}

// AgentStatuses returns a snapshot of every registered agent, sorted by id.
func (o *Orchestrator) AgentStatuses() []Info {
	o.mu.Lock()
	defer o.mu.Unlock()

	infos := make([]Info, 0, len(o.agents))
	for id, a := range o.agents {
		state := o.states[id]
		infos = append(infos, Info{
			AgentID:      a.ID(),
			Name:         a.Name(),
			Status:       state.status,
			Capabilities: a.Capabilities(),
			LastActivity: state.lastActivity,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].AgentID < infos[j].AgentID })
	return infos
}

// RunTask submits the named agent's work to the task runner and returns the
// task id for status polling. The agent's reported status tracks the
// execution.
func (o *Orchestrator) RunTask(agentID string, priority taskrunner.Priority, params map[string]any) (uuid.UUID, error) {
	o.mu.Lock()
	a, ok := o.agents[agentID]
	o.mu.Unlock()
	if !ok {
		return uuid.Nil, fmt.Errorf("agent %q: %w", agentID, ErrAgentNotFound)
	}

	taskID, err := o.runner.Submit(
		"agent:"+agentID,
		func(ctx context.Context) (any, error) {
			o.setAgentStatus(agentID, agentStatusRunning)
			result, err := a.Execute(ctx, params)
			if err != nil {
				o.setAgentStatus(agentID, agentStatusError)
				o.metrics.Inc("agent_tasks_failed")
				return nil, err
			}
			o.setAgentStatus(agentID, agentStatusIdle)
			o.metrics.Inc("agent_tasks_completed")
			return result, nil
		},
		taskrunner.WithPriority(priority),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to submit agent task: %w", err)
	}

	o.logger.Info("agent task submitted",
		"agent_id", agentID,
		"task_id", taskID,
		"priority", priority)
	o.metrics.Inc("agent_tasks_submitted")
	return taskID, nil
}

func (o *Orchestrator) setAgentStatus(agentID, status string) {
	now := time.Now().UTC()
	o.mu.Lock()
	defer o.mu.Unlock()
	if state, ok := o.states[agentID]; ok {
		state.status = status
		state.lastActivity = &now
	}
}
