// Package connector provides the SAP connectivity service. Connections are
// simulated: each test validates the supplied configuration, waits a
// realistic interval, and returns a canned landscape payload. No real PI,
// PO, or BTP protocol traffic is performed.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sapbridge/agent-services/internal/metrics"
)

// Connection types understood by the service.
const (
	TypeSAPPI  = "sap_pi"
	TypeSAPPO  = "sap_po"
	TypeSAPBTP = "sap_btp"
)

// Config describes one SAP connection to test.
type Config struct {
	Type     string `json:"type" validate:"required,oneof=sap_pi sap_po sap_btp"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	URL      string `json:"url,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// Result is the outcome of a connection test.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Service tests connectivity against SAP landscapes.
type Service struct {
	logger  *slog.Logger
	metrics *metrics.Collector

	// latency is the simulated round-trip cost of one connection test.
	latency time.Duration
}

// NewService creates a connector Service.
func NewService(logger *slog.Logger, collector *metrics.Collector) *Service {
	return &Service{
		logger:  logger.With("component", "sap_connector"),
		metrics: collector,
		latency: time.Second,
	}
}

// TestConnection validates the configuration and runs the simulated
// connection test for its type. Configuration problems are reported inside
// the Result rather than as an error; only context cancellation aborts the
// call.
func (s *Service) TestConnection(ctx context.Context, cfg Config) (Result, error) {
	var result Result
	var err error

	switch cfg.Type {
	case TypeSAPPI:
		result, err = s.testPI(ctx, cfg)
	case TypeSAPPO:
		result, err = s.testPO(ctx, cfg)
	case TypeSAPBTP:
		result, err = s.testBTP(ctx, cfg)
	default:
		s.metrics.Inc("connection_test_failed")
		return Result{
			Success: false,
			Error:   fmt.Sprintf("unsupported connection type: %q", cfg.Type),
		}, nil
	}

	if err != nil {
		s.metrics.Inc("connection_test_failed")
		return Result{}, err
	}
	if result.Success {
		s.metrics.Inc("connection_test_success")
	} else {
		s.metrics.Inc("connection_test_failed")
	}
	return result, nil
}

func (s *Service) testPI(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.Username == "" {
		return Result{
			Success: false,
			Error:   "missing required fields for SAP PI connection: host, port, username",
		}, nil
	}

	if err := s.roundTrip(ctx); err != nil {
		return Result{}, fmt.Errorf("sap pi connection test interrupted: %w", err)
	}

	s.logger.Info("sap pi connection test succeeded", "host", cfg.Host, "port", cfg.Port)
	return Result{
		Success: true,
		Message: "SAP PI connection successful",
		Version: "SAP PI 7.5",
	}, nil
}

func (s *Service) testPO(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Host == "" || cfg.Username == "" {
		return Result{
			Success: false,
			Error:   "missing required fields for SAP PO connection: host, username",
		}, nil
	}

	if err := s.roundTrip(ctx); err != nil {
		return Result{}, fmt.Errorf("sap po connection test interrupted: %w", err)
	}

	s.logger.Info("sap po connection test succeeded", "host", cfg.Host)
	return Result{
		Success: true,
		Message: "SAP PO connection successful",
		Version: "SAP PO 7.5 SP12",
	}, nil
}

func (s *Service) testBTP(ctx context.Context, cfg Config) (Result, error) {
	if cfg.URL == "" || cfg.ClientID == "" {
		return Result{
			Success: false,
			Error:   "missing required fields for SAP BTP connection: url, client_id",
		}, nil
	}

	if err := s.roundTrip(ctx); err != nil {
		return Result{}, fmt.Errorf("sap btp connection test interrupted: %w", err)
	}

	s.logger.Info("sap btp connection test succeeded", "url", cfg.URL)
	return Result{
		Success: true,
		Message: "SAP BTP connection successful",
		Version: "Cloud Integration 6.x",
	}, nil
}

// roundTrip simulates one network exchange with the target landscape.
func (s *Service) roundTrip(ctx context.Context) error {
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
