package errorz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidTarget         = errors.New("invalid target status")
	ErrConflict              = errors.New("conflict")
	ErrValidation            = errors.New("validation failed")
	ErrTimeout               = errors.New("timeout")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// ValidationError carries field-level detail and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation builds a ValidationError from field/message pairs.
func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Postgres SQLSTATE codes translated by FromDB.
const (
	codeCheckViolation      = "23514"
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeLockNotAvailable    = "55P03"
	codeQueryCanceled       = "57014"
)

// FromDB maps driver errors onto the taxonomy so raw pgx errors never leave a repository.
// Errors that already belong to the taxonomy pass through unchanged.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeCheckViolation:
			if strings.Contains(pgErr.ConstraintName, "status") {
				return fmt.Errorf("%w: %s", ErrInvalidTarget, pgErr.ConstraintName)
			}
			return NewValidation(map[string]string{constraintField(pgErr): "violates " + pgErr.ConstraintName})
		case codeNotNullViolation:
			return NewValidation(map[string]string{pgErr.ColumnName: "is required"})
		case codeForeignKeyViolation:
			return NewValidation(map[string]string{constraintField(pgErr): "references a missing record"})
		case codeUniqueViolation, codeSerialization, codeDeadlock, codeLockNotAvailable:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		case codeQueryCanceled:
			return fmt.Errorf("%w: %s", ErrTimeout, pgErr.Message)
		}
	}
	return err
}

func constraintField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return pgErr.TableName
}

var kinds = []error{
	ErrNotFound,
	ErrForbidden,
	ErrInvalidTarget,
	ErrConflict,
	ErrValidation,
	ErrTimeout,
	ErrDependencyUnavailable,
}

// Kind returns the taxonomy sentinel err matches, or nil.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
