package dto

import (
	"net/http"

	"github.com/scafi/backend/internal/domain/integration"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is used when a payload fails structural validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeDuplicateRequest is used when a correlation id was already processed
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Processing error codes
const (
	// ErrCodeConstraintViolation is used when the audit write hits a database constraint
	ErrCodeConstraintViolation = "ERR_CONSTRAINT_VIOLATION"
	// ErrCodeDatabaseTimeout is used when the audit write exceeds a timeout bound
	ErrCodeDatabaseTimeout = "ERR_DATABASE_TIMEOUT"
	// ErrCodePoolExhausted is used when no pooled connection is available
	ErrCodePoolExhausted = "ERR_POOL_EXHAUSTED"
	// ErrCodeDownstream is used when forwarding to JDE failed after the record was persisted
	ErrCodeDownstream = "ERR_DOWNSTREAM"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeDuplicateRequest: http.StatusConflict,
	ErrCodeNotFound:         http.StatusNotFound,

	ErrCodeConstraintViolation: http.StatusConflict,
	ErrCodeDatabaseTimeout:     http.StatusGatewayTimeout,
	ErrCodePoolExhausted:       http.StatusServiceUnavailable,
	ErrCodeDownstream:          http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// OutcomeErrorCode translates a failed pipeline outcome into a transport
// error code. Success outcomes never reach this function.
func OutcomeErrorCode(outcome *integration.OperationOutcome) string {
	switch outcome.FailedStage {
	case integration.StageValidation:
		return ErrCodeValidation
	case integration.StagePersistence:
		switch integration.PersistenceErrorKind(outcome.ErrorKind) {
		case integration.PersistenceConstraintViolation:
			return ErrCodeConstraintViolation
		case integration.PersistenceConnectTimeout,
			integration.PersistenceStatementTimeout,
			integration.PersistenceLockTimeout:
			return ErrCodeDatabaseTimeout
		case integration.PersistencePoolExhausted:
			return ErrCodePoolExhausted
		}
		return ErrCodeInternal
	case integration.StageDownstream:
		return ErrCodeDownstream
	}
	return ErrCodeUnknown
}
