package persistence

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/scafi/backend/internal/domain/integration"
)

// PostgreSQL SQLSTATE codes that map onto the integration failure taxonomy.
const (
	sqlstateQueryCanceled      = "57014"
	sqlstateLockNotAvailable   = "55P03"
	sqlstateIntegrityViolation = "23" // class prefix
)

// classifyWriteError maps a failed audit write to a domain PersistenceError.
// Errors outside the taxonomy are returned unchanged so callers can surface
// them as unclassified internal failures.
func classifyWriteError(err error, poolSaturated bool) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == sqlstateQueryCanceled:
			return integration.NewPersistenceError(integration.PersistenceStatementTimeout, err)
		case pgErr.Code == sqlstateLockNotAvailable:
			return integration.NewPersistenceError(integration.PersistenceLockTimeout, err)
		case strings.HasPrefix(pgErr.Code, sqlstateIntegrityViolation):
			return integration.NewPersistenceError(integration.PersistenceConstraintViolation, err)
		}
		return err
	}

	if isTimeout(err) {
		if poolSaturated {
			return integration.NewPersistenceError(integration.PersistencePoolExhausted, err)
		}
		return integration.NewPersistenceError(integration.PersistenceConnectTimeout, err)
	}

	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
