// Package agent hosts the orchestrator coordinating the automation agents
// (SAP analysis, migration planning, integration design) and dispatching
// their work through the task runner. All agent work is simulated: canned
// findings behind realistic latency, no real SAP or LLM calls.
package agent

import (
	"context"
	"fmt"
	"time"
)

// Agent is one automation agent the orchestrator can dispatch work to.
type Agent interface {
	// ID returns the agent's stable identifier, e.g. "sap-analysis".
	ID() string

	// Name returns the agent's human-readable name.
	Name() string

	// Capabilities lists what kinds of work the agent can perform.
	Capabilities() []string

	// Execute performs one unit of agent work with the given parameters.
	Execute(ctx context.Context, params map[string]any) (any, error)
}

// Info describes an agent for status reporting.
type Info struct {
	AgentID      string     `json:"agent_id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	Capabilities []string   `json:"capabilities"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// simulate blocks for the given duration to stand in for a real analysis or
// planning call, honoring context cancellation.
func simulate(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sapAnalysisAgent produces canned findings about an SAP landscape.
type sapAnalysisAgent struct {
	latency time.Duration
}

// NewSAPAnalysisAgent creates the SAP system analysis agent.
func NewSAPAnalysisAgent() Agent {
	return &sapAnalysisAgent{latency: 2 * time.Second}
}

func (a *sapAnalysisAgent) ID() string   { return "sap-analysis" }
func (a *sapAnalysisAgent) Name() string { return "SAP Analysis Agent" }

func (a *sapAnalysisAgent) Capabilities() []string {
	return []string{
		"system_analysis",
		"configuration_review",
		"performance_assessment",
		"migration_planning",
	}
}

func (a *sapAnalysisAgent) Execute(ctx context.Context, params map[string]any) (any, error) {
	if err := simulate(ctx, a.latency); err != nil {
		return nil, fmt.Errorf("sap analysis interrupted: %w", err)
	}

	analysisType := "general"
	if v, ok := params["type"].(string); ok && v != "" {
		analysisType = v
	}

	return map[string]any{
		"analysis_type": analysisType,
		"findings": []string{
			"System configuration is optimal",
			"Performance metrics are within acceptable range",
			"No critical issues found",
		},
		"recommendations": []string{
			"Consider upgrading to latest version",
			"Implement monitoring for key metrics",
		},
	}, nil
}

// migrationPlanningAgent produces a canned migration plan.
type migrationPlanningAgent struct {
	latency time.Duration
}

// NewMigrationPlanningAgent creates the migration planning agent.
func NewMigrationPlanningAgent() Agent {
	return &migrationPlanningAgent{latency: 3 * time.Second}
}

func (a *migrationPlanningAgent) ID() string   { return "migration-planning" }
func (a *migrationPlanningAgent) Name() string { return "Migration Planning Agent" }

func (a *migrationPlanningAgent) Capabilities() []string {
	return []string{
		"migration_assessment",
		"timeline_planning",
		"risk_analysis",
		"resource_planning",
	}
}

func (a *migrationPlanningAgent) Execute(ctx context.Context, params map[string]any) (any, error) {
	if err := simulate(ctx, a.latency); err != nil {
		return nil, fmt.Errorf("migration planning interrupted: %w", err)
	}

	strategy := "phased"
	if v, ok := params["strategy"].(string); ok && v != "" {
		strategy = v
	}

	return map[string]any{
		"migration_strategy": strategy,
		"timeline": map[string]string{
			"preparation": "2 weeks",
			"execution":   "4 weeks",
			"validation":  "1 week",
		},
		"risks": []string{
			"Data volume may extend the execution window",
			"Interface downtime required during cutover",
		},
	}, nil
}

// integrationDesignAgent produces a canned integration flow design.
type integrationDesignAgent struct {
	latency time.Duration
}

// NewIntegrationDesignAgent creates the integration design agent.
func NewIntegrationDesignAgent() Agent {
	return &integrationDesignAgent{latency: 2 * time.Second}
}

func (a *integrationDesignAgent) ID() string   { return "integration-design" }
func (a *integrationDesignAgent) Name() string { return "Integration Design Agent" }

func (a *integrationDesignAgent) Capabilities() []string {
	return []string{
		"interface_design",
		"mapping_generation",
		"adapter_configuration",
	}
}

func (a *integrationDesignAgent) Execute(ctx context.Context, params map[string]any) (any, error) {
	if err := simulate(ctx, a.latency); err != nil {
		return nil, fmt.Errorf("integration design interrupted: %w", err)
	}

	scenario := "outbound"
	if v, ok := params["scenario"].(string); ok && v != "" {
		scenario = v
	}

	return map[string]any{
		"scenario": scenario,
		"adapters": []string{"SOAP", "IDoc"},
		"mappings": 4,
	}, nil
}
