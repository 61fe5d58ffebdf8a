package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/scafi/backend/internal/domain/integration"
)

// IntegrationRecordModel is the persistence model for an integration audit copy.
// Every accepted payload is written here before any downstream forwarding.
type IntegrationRecordModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	RequestID   string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_integration_records_request_id"`
	Kind        string    `gorm:"type:varchar(20);not null;index:idx_integration_records_kind"`
	BusinessKey string    `gorm:"type:varchar(100);not null;index:idx_integration_records_business_key"`
	Payload     string    `gorm:"type:jsonb;not null"`
	ReceivedAt  time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationRecordModel) TableName() string {
	return "integration_records"
}

// FromDomain populates the persistence model from a domain record.
func (m *IntegrationRecordModel) FromDomain(record *integration.IntegrationRecord) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return err
	}
	m.ID = uuid.New()
	m.RequestID = record.RequestID
	m.Kind = string(record.Kind)
	m.BusinessKey = record.BusinessKey()
	m.Payload = string(payload)
	m.ReceivedAt = record.ReceivedAt
	return nil
}

// ToDomain converts the persistence model to a domain audit record.
func (m *IntegrationRecordModel) ToDomain() *integration.AuditRecord {
	record := &integration.AuditRecord{
		ID:          m.ID.String(),
		RequestID:   m.RequestID,
		Kind:        integration.RecordKind(m.Kind),
		BusinessKey: m.BusinessKey,
		ReceivedAt:  m.ReceivedAt,
	}
	if m.Payload != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(m.Payload), &payload); err == nil {
			record.Payload = payload
		}
	}
	return record
}
