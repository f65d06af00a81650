package store

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/taskdeck/taskdeck/internal/apperr"
)

// Postgres error codes the domain layer distinguishes
const (
	pgUniqueViolation  = "23505"
	pgForeignKey       = "23503"
	pgNotNullViolation = "23502"
	pgCheckViolation   = "23514"
)

// TranslateError converts store-level failures into the domain taxonomy.
// Unique violations become Conflict, missing rows become NotFound, and
// anything unrecognized is wrapped as InternalError so raw driver errors
// never cross the domain boundary.
func TranslateError(err error, op string) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(err, apperr.ErrNotFound, op)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			e := apperr.Wrap(err, apperr.ErrConflict, op)
			e.Message = "already exists"
			return e
		case pgForeignKey:
			e := apperr.Wrap(err, apperr.ErrBadRequest, op)
			e.Message = "referenced record does not exist"
			return e
		case pgNotNullViolation, pgCheckViolation:
			e := apperr.Wrap(err, apperr.ErrBadRequest, op)
			e.Message = "invalid value"
			return e
		}
	}

	// Some drivers and test doubles surface violations as plain text
	errStr := err.Error()
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		e := apperr.Wrap(err, apperr.ErrConflict, op)
		e.Message = "already exists"
		return e
	}
	if strings.Contains(errStr, "violates foreign key constraint") {
		e := apperr.Wrap(err, apperr.ErrBadRequest, op)
		e.Message = "referenced record does not exist"
		return e
	}

	return apperr.Wrap(err, apperr.ErrInternal, op)
}

// IsUniqueViolation reports whether err is a unique-constraint failure,
// optionally scoped to a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return constraint == "" || pqErr.Constraint == constraint
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return false
	}
	return constraint == "" || strings.Contains(errStr, constraint)
}
