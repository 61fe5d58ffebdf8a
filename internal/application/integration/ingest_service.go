// Package integration orchestrates the ingest pipeline: validate, persist an
// audit copy, forward to JDE, and notify on failure. Persistence always
// happens before forwarding so an accepted record is never lost.
package integration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/scafi/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// defaultNotifyTimeout bounds the background notification attempt
const defaultNotifyTimeout = 10 * time.Second

// IngestService runs the pipeline state machine for one record at a time.
type IngestService struct {
	store    integration.RecordStore
	client   integration.DownstreamClient
	notifier integration.Notifier
	log      *zap.Logger

	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

// NewIngestService creates a new IngestService
func NewIngestService(
	store integration.RecordStore,
	client integration.DownstreamClient,
	notifier integration.Notifier,
	log *zap.Logger,
) *IngestService {
	return &IngestService{
		store:         store,
		client:        client,
		notifier:      notifier,
		log:           log,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// Process runs one record through the pipeline and always returns an outcome.
// The outcome, not an error, is the contract with the transport layer.
func (s *IngestService) Process(ctx context.Context, record *integration.IntegrationRecord) *integration.OperationOutcome {
	// A dropped client connection must not cut a transaction short; each
	// stage is bounded by its own timeouts, not by the caller's context.
	ctx = context.WithoutCancel(ctx)

	outcome := &integration.OperationOutcome{
		RequestID: record.RequestID,
		Kind:      record.Kind,
	}

	if err := record.Validate(); err != nil {
		outcome.Status = integration.StatusFailure
		outcome.FailedStage = integration.StageValidation
		outcome.ErrorKind = "VALIDATION_ERROR"
		outcome.Errors = []string{err.Error()}
		return outcome
	}

	stored, err := s.store.Store(ctx, record)
	if err != nil {
		s.log.Error("audit write failed, record rejected",
			zap.String("request_id", record.RequestID),
			zap.String("kind", string(record.Kind)),
			zap.Error(err))
		outcome.Status = integration.StatusFailure
		outcome.FailedStage = integration.StagePersistence
		outcome.Errors = []string{err.Error()}
		var pErr *integration.PersistenceError
		if errors.As(err, &pErr) {
			outcome.ErrorKind = string(pErr.Kind)
		}
		s.notifyAsync(record, outcome)
		return outcome
	}
	outcome.Persistence = &integration.PersistenceResult{
		PersistedID: stored.ID,
		Synthetic:   stored.Synthetic,
	}

	resp, err := s.client.Send(ctx, record)
	if err != nil {
		// The audit copy is kept: a forwarding failure downgrades the run
		// to a partial failure, it never undoes the persisted record.
		s.log.Error("downstream forward failed after audit write",
			zap.String("request_id", record.RequestID),
			zap.String("kind", string(record.Kind)),
			zap.String("persisted_id", stored.ID),
			zap.Error(err))
		outcome.Status = integration.StatusPartialFailure
		outcome.FailedStage = integration.StageDownstream
		outcome.Errors = []string{err.Error()}
		var dErr *integration.DownstreamError
		if errors.As(err, &dErr) {
			outcome.ErrorKind = string(dErr.Kind)
			outcome.Downstream = &integration.DownstreamResult{
				StatusCode: dErr.StatusCode,
				Attempts:   dErr.Attempts,
			}
		}
		s.notifyAsync(record, outcome)
		return outcome
	}

	outcome.Status = integration.StatusSuccess
	outcome.Downstream = &integration.DownstreamResult{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Attempts:   resp.Attempts,
		Synthetic:  resp.Synthetic,
	}

	s.log.Info("record processed",
		zap.String("request_id", record.RequestID),
		zap.String("kind", string(record.Kind)),
		zap.String("persisted_id", stored.ID),
		zap.Int("attempts", outcome.Downstream.Attempts),
		zap.Bool("synthetic", outcome.Synthetic()))
	return outcome
}

// Lookup returns the audit copy previously stored for a correlation id.
func (s *IngestService) Lookup(ctx context.Context, requestID string) (*integration.AuditRecord, error) {
	return s.store.FindByRequestID(ctx, requestID)
}

// notifyAsync fires the failure notification without blocking the request.
// Delivery is best-effort; the notifier logs its own errors.
func (s *IngestService) notifyAsync(record *integration.IntegrationRecord, outcome *integration.OperationOutcome) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyFailure(ctx, record, outcome); err != nil {
			s.log.Warn("failure notification not delivered",
				zap.String("request_id", record.RequestID),
				zap.Error(err))
		}
	}()
}

// Close waits for in-flight notifications to finish. Called on shutdown.
func (s *IngestService) Close() {
	s.wg.Wait()
}
