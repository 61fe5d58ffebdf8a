package dto

import (
	"net/http"
	"testing"

	"github.com/scafi/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		{ErrCodeConstraintViolation, http.StatusConflict},
		{ErrCodeDatabaseTimeout, http.StatusGatewayTimeout},
		{ErrCodePoolExhausted, http.StatusServiceUnavailable},
		{ErrCodeDownstream, http.StatusBadGateway},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"ERR_NOT_A_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestOutcomeErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		outcome  *integration.OperationOutcome
		expected string
	}{
		{
			"validation failure",
			&integration.OperationOutcome{FailedStage: integration.StageValidation},
			ErrCodeValidation,
		},
		{
			"statement timeout",
			&integration.OperationOutcome{
				FailedStage: integration.StagePersistence,
				ErrorKind:   string(integration.PersistenceStatementTimeout),
			},
			ErrCodeDatabaseTimeout,
		},
		{
			"lock timeout",
			&integration.OperationOutcome{
				FailedStage: integration.StagePersistence,
				ErrorKind:   string(integration.PersistenceLockTimeout),
			},
			ErrCodeDatabaseTimeout,
		},
		{
			"connect timeout",
			&integration.OperationOutcome{
				FailedStage: integration.StagePersistence,
				ErrorKind:   string(integration.PersistenceConnectTimeout),
			},
			ErrCodeDatabaseTimeout,
		},
		{
			"pool exhausted",
			&integration.OperationOutcome{
				FailedStage: integration.StagePersistence,
				ErrorKind:   string(integration.PersistencePoolExhausted),
			},
			ErrCodePoolExhausted,
		},
		{
			"constraint violation",
			&integration.OperationOutcome{
				FailedStage: integration.StagePersistence,
				ErrorKind:   string(integration.PersistenceConstraintViolation),
			},
			ErrCodeConstraintViolation,
		},
		{
			"unclassified persistence failure",
			&integration.OperationOutcome{FailedStage: integration.StagePersistence},
			ErrCodeInternal,
		},
		{
			"downstream failure",
			&integration.OperationOutcome{
				FailedStage: integration.StageDownstream,
				ErrorKind:   string(integration.DownstreamServerError),
			},
			ErrCodeDownstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OutcomeErrorCode(tt.outcome))
		})
	}
}
