package integration

import (
	"context"
	"time"
)

// RetryPolicy bounds the downstream forwarding call. Configuration-derived,
// immutable, shared read-only across all downstream calls.
type RetryPolicy struct {
	// Attempts is the total number of calls made before giving up
	Attempts int
	// BaseBackoff is the delay before the second attempt; attempt k waits BaseBackoff * 2^(k-1)
	BaseBackoff time.Duration
	// Timeout bounds each individual attempt
	Timeout time.Duration
}

// StoredRecord is the result of a successful audit write
type StoredRecord struct {
	ID string
	// Synthetic is true when persistence was bypassed by dry-run mode
	Synthetic bool
}

// DownstreamResponse is the result of a successful forwarding call
type DownstreamResponse struct {
	StatusCode int
	Body       string
	Attempts   int
	// Synthetic is true when the call was bypassed by dry-run mode
	Synthetic bool
}

// AuditRecord is a persisted audit copy as read back from the store
type AuditRecord struct {
	ID          string
	RequestID   string
	Kind        RecordKind
	BusinessKey string
	Payload     map[string]any
	ReceivedAt  time.Time
}

// RecordStore is the port for the transactional audit store
type RecordStore interface {
	// Store persists one record in a single bounded transaction
	Store(ctx context.Context, record *IntegrationRecord) (*StoredRecord, error)
	// FindByRequestID returns the audit copy for a correlation id
	FindByRequestID(ctx context.Context, requestID string) (*AuditRecord, error)
	// Ping performs a lightweight readiness round-trip
	Ping(ctx context.Context) error
}

// DownstreamClient is the port for the JDE relay
type DownstreamClient interface {
	// Send forwards a record's payload to the downstream sub-resource for its kind
	Send(ctx context.Context, record *IntegrationRecord) (*DownstreamResponse, error)
	// Ping performs a cheap reachability call
	Ping(ctx context.Context) error
}

// Notifier is the port for best-effort failure notification
type Notifier interface {
	// NotifyFailure reports a failed outcome; errors are logged and swallowed by callers
	NotifyFailure(ctx context.Context, record *IntegrationRecord, outcome *OperationOutcome) error
}
