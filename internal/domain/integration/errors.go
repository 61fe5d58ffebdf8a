package integration

import "fmt"

// ValidationError signals that an inbound record failed structural
// validation. Terminal for the pipeline; no I/O is ever attempted.
type ValidationError struct {
	Reason string
}

// NewValidationError creates a new ValidationError
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// PersistenceErrorKind classifies persistence failures
type PersistenceErrorKind string

const (
	// PersistenceConnectTimeout means a pool connection could not be obtained in time
	PersistenceConnectTimeout PersistenceErrorKind = "CONNECT_TIMEOUT"
	// PersistenceStatementTimeout means the write exceeded the statement timeout
	PersistenceStatementTimeout PersistenceErrorKind = "STATEMENT_TIMEOUT"
	// PersistenceLockTimeout means a row/table lock was not acquired in time
	PersistenceLockTimeout PersistenceErrorKind = "LOCK_TIMEOUT"
	// PersistenceConstraintViolation means the write violated a database constraint
	PersistenceConstraintViolation PersistenceErrorKind = "CONSTRAINT_VIOLATION"
	// PersistencePoolExhausted means the connection pool is saturated; retryable at the dispatch layer
	PersistencePoolExhausted PersistenceErrorKind = "POOL_EXHAUSTED"
)

// PersistenceError signals that the audit write failed and was rolled back
type PersistenceError struct {
	Kind  PersistenceErrorKind
	Cause error
}

// NewPersistenceError creates a new PersistenceError wrapping its cause
func NewPersistenceError(kind PersistenceErrorKind, cause error) *PersistenceError {
	return &PersistenceError{Kind: kind, Cause: cause}
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persistence failed (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("persistence failed (%s)", e.Kind)
}

// Unwrap returns the underlying cause
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// DownstreamErrorKind classifies downstream (JDE) call failures
type DownstreamErrorKind string

const (
	// DownstreamTimeout means the call exceeded its timeout budget
	DownstreamTimeout DownstreamErrorKind = "TIMEOUT"
	// DownstreamConnectionRefused means the downstream host was unreachable
	DownstreamConnectionRefused DownstreamErrorKind = "CONNECTION_REFUSED"
	// DownstreamClientRejected means the downstream rejected the payload (4xx, not retried)
	DownstreamClientRejected DownstreamErrorKind = "CLIENT_REJECTED"
	// DownstreamServerError means the downstream returned 5xx for every attempt
	DownstreamServerError DownstreamErrorKind = "SERVER_ERROR"
)

// DownstreamError signals that forwarding to JDE failed after the retry
// budget was exhausted, or immediately for non-retryable rejections.
type DownstreamError struct {
	Kind       DownstreamErrorKind
	StatusCode int
	Body       string
	Attempts   int
	Cause      error
}

// NewDownstreamError creates a new DownstreamError
func NewDownstreamError(kind DownstreamErrorKind, statusCode int, body string, cause error) *DownstreamError {
	return &DownstreamError{Kind: kind, StatusCode: statusCode, Body: body, Cause: cause}
}

// Error implements the error interface
func (e *DownstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("downstream call failed (%s): status %d", e.Kind, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("downstream call failed (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("downstream call failed (%s)", e.Kind)
}

// Unwrap returns the underlying cause
func (e *DownstreamError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure may succeed on a later attempt.
// Client rejections are deterministic and never retried.
func (e *DownstreamError) Retryable() bool {
	return e.Kind != DownstreamClientRejected
}
