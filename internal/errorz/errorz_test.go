package errorz

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDB(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("get question: %w", pgx.ErrNoRows), ErrNotFound},
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"canceled", context.Canceled, ErrTimeout},
		{"status check", &pgconn.PgError{Code: "23514", ConstraintName: "questions_status_check"}, ErrInvalidTarget},
		{"difficulty check", &pgconn.PgError{Code: "23514", ConstraintName: "questions_difficulty_check"}, ErrValidation},
		{"unique", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, ErrConflict},
		{"serialization", &pgconn.PgError{Code: "40001"}, ErrConflict},
		{"lock", &pgconn.PgError{Code: "55P03"}, ErrConflict},
		{"fk", &pgconn.PgError{Code: "23503", ConstraintName: "questions_subject_id_fkey"}, ErrValidation},
		{"not null", &pgconn.PgError{Code: "23502", ColumnName: "body"}, ErrValidation},
		{"query canceled", &pgconn.PgError{Code: "57014"}, ErrTimeout},
		{"already translated", fmt.Errorf("%w: claimed", ErrConflict), ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDB(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestFromDBPassesThroughUnknown(t *testing.T) {
	raw := errors.New("connection reset")
	assert.Same(t, raw, FromDB(raw))
	assert.Nil(t, Kind(raw))
}

func TestValidationError(t *testing.T) {
	err := NewValidation(map[string]string{"difficulty": "must be between 1 and 5", "body": "is required"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: body: is required; difficulty: must be between 1 and 5", err.Error())

	var ve *ValidationError
	require.ErrorAs(t, fmt.Errorf("update: %w", err), &ve)
	assert.Len(t, ve.Fields, 2)

	nf := FromDB(&pgconn.PgError{Code: "23502", ColumnName: "body"})
	require.ErrorAs(t, nf, &ve)
	assert.Equal(t, "is required", ve.Fields["body"])
}
