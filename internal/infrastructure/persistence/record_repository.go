package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/scafi/backend/internal/domain/integration"
	"github.com/scafi/backend/internal/domain/shared"
	"github.com/scafi/backend/internal/infrastructure/config"
	"github.com/scafi/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormRecordStore implements integration.RecordStore on PostgreSQL via GORM.
// Each Store call runs in its own transaction with per-transaction statement
// and lock timeouts, so one slow write never wedges the whole pool.
type GormRecordStore struct {
	db   *Database
	cfg  *config.DatabaseConfig
	mode integration.Mode
	log  *zap.Logger
}

// NewGormRecordStore creates a new GormRecordStore. db may be nil when mode is
// DRY_RUN; no connection is touched in that mode.
func NewGormRecordStore(db *Database, cfg *config.DatabaseConfig, mode integration.Mode, log *zap.Logger) *GormRecordStore {
	return &GormRecordStore{db: db, cfg: cfg, mode: mode, log: log}
}

// Store persists one audit copy in a single bounded transaction.
func (r *GormRecordStore) Store(ctx context.Context, record *integration.IntegrationRecord) (*integration.StoredRecord, error) {
	if r.mode.IsDryRun() {
		r.log.Info("database dry-run: skipping audit write",
			zap.String("request_id", record.RequestID),
			zap.String("kind", string(record.Kind)))
		return &integration.StoredRecord{ID: uuid.NewString(), Synthetic: true}, nil
	}

	var model models.IntegrationRecordModel
	if err := model.FromDomain(record); err != nil {
		return nil, fmt.Errorf("failed to serialize record payload: %w", err)
	}

	// Pool acquisition is bounded separately from the write itself: a Begin
	// that cannot obtain a connection within the connect timeout surfaces as
	// CONNECT_TIMEOUT or POOL_EXHAUSTED, never as a statement timeout.
	acquireCtx, cancel := context.WithTimeout(ctx, r.cfg.ConnectTimeout)
	defer cancel()

	tx := r.db.DB.WithContext(acquireCtx).Begin()
	if tx.Error != nil {
		return nil, classifyWriteError(tx.Error, r.db.Saturated())
	}
	tx = tx.WithContext(ctx)
	defer tx.Rollback()

	// SET LOCAL scopes both timeouts to this transaction only.
	if err := tx.Exec(fmt.Sprintf("SET LOCAL statement_timeout = %d", r.cfg.StatementTimeoutMS)).Error; err != nil {
		return nil, classifyWriteError(err, false)
	}
	if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", r.cfg.LockTimeoutMS)).Error; err != nil {
		return nil, classifyWriteError(err, false)
	}

	if err := tx.Create(&model).Error; err != nil {
		return nil, classifyWriteError(err, false)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyWriteError(err, false)
	}

	return &integration.StoredRecord{ID: model.ID.String()}, nil
}

// FindByRequestID returns the audit copy for a correlation id.
func (r *GormRecordStore) FindByRequestID(ctx context.Context, requestID string) (*integration.AuditRecord, error) {
	if r.mode.IsDryRun() {
		return nil, shared.ErrNotFound
	}

	var model models.IntegrationRecordModel
	if err := r.db.DB.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ping performs a readiness round-trip bounded by the connect timeout.
func (r *GormRecordStore) Ping(ctx context.Context) error {
	if r.mode.IsDryRun() {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, r.cfg.ConnectTimeout)
	defer cancel()
	return r.db.Ping(pingCtx)
}
