package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Runner RunnerConfig `mapstructure:"runner" validate:"required"`
	SAP    SAPConfig    `mapstructure:"sap"`
	Agent  AgentConfig  `mapstructure:"agent" validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// RunnerConfig contains the task runner pool settings.
type RunnerConfig struct {
	WorkerCount            int `mapstructure:"worker_count" validate:"required,gt=0,lte=128"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"required,gt=0"`
	CompletedTaskListLimit int `mapstructure:"completed_task_list_limit" validate:"required,gt=0"`
}

// SAPConfig holds endpoints of the SAP landscapes this deployment targets.
// All optional and informational: connection tests validate the details
// carried by each request, not these process-level endpoints.
type SAPConfig struct {
	PIHost string `mapstructure:"pi_host"`
	POHost string `mapstructure:"po_host"`
	BTPURL string `mapstructure:"btp_url" validate:"omitempty,url"`
}

// AgentConfig mirrors the agent execution limits of the hosted platform.
// Accepted and validated; the simulated agents run with fixed latencies and
// do not enforce them.
type AgentConfig struct {
	MaxConcurrent  int `mapstructure:"max_concurrent" validate:"required,gt=0"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}
