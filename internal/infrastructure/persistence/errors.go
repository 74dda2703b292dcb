package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
)

// Postgres SQLSTATE codes the repositories classify.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// translateError maps driver errors onto the domain error taxonomy.
// Domain errors pass through unchanged. Anything unrecognized becomes a
// retryable PersistenceError carrying op.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return alreadyExists(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return alreadyExists(op, err)
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return shared.NewPersistenceError(op, err).
				WithDetail("sqlstate", pgErr.Code).
				WithDetail("conflict", true)
		default:
			return shared.NewPersistenceError(op, err).WithDetail("sqlstate", pgErr.Code)
		}
	}
	return shared.NewPersistenceError(op, err)
}

// notFoundOr returns a NotFoundError for gorm.ErrRecordNotFound and
// translates everything else.
func notFoundOr(op, entity, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(entity, id)
	}
	return translateError(op, err)
}

func alreadyExists(op string, err error) error {
	return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("%s: record already exists", op)).
		WithDetail("operation", op).
		WithDetail("cause", err.Error())
}
