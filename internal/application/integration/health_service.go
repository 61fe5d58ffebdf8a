package integration

import (
	"context"

	"github.com/scafi/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// HealthService assembles the composite readiness verdict. Dependencies
// running in dry-run mode are reported as skipped instead of being probed,
// so a dry-run deployment is always ready.
type HealthService struct {
	store  integration.RecordStore
	client integration.DownstreamClient
	log    *zap.Logger
}

// NewHealthService creates a new HealthService
func NewHealthService(store integration.RecordStore, client integration.DownstreamClient, log *zap.Logger) *HealthService {
	return &HealthService{store: store, client: client, log: log}
}

// Check probes both dependencies and returns a fresh verdict. The probes run
// live on every call; nothing is cached.
func (s *HealthService) Check(ctx context.Context, modes integration.ExecutionModes) integration.HealthStatus {
	status := integration.HealthStatus{
		Database:   integration.SubsystemSkipped,
		Downstream: integration.SubsystemSkipped,
	}

	if !modes.Database.IsDryRun() {
		if err := s.store.Ping(ctx); err != nil {
			s.log.Warn("database readiness probe failed", zap.Error(err))
			status.Database = integration.SubsystemDown
		} else {
			status.Database = integration.SubsystemUp
		}
	}

	if !modes.Downstream.IsDryRun() {
		if err := s.client.Ping(ctx); err != nil {
			s.log.Warn("downstream readiness probe failed", zap.Error(err))
			status.Downstream = integration.SubsystemDown
		} else {
			status.Downstream = integration.SubsystemUp
		}
	}

	return status
}
