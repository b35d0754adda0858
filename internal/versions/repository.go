package versions

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/models"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Insert appends a snapshot. Run it inside the transaction that mutates the question.
func Insert(ctx context.Context, db Querier, v *models.QuestionVersion) error {
	const q = `INSERT INTO question_versions (question_id, version_number, snapshot, changed_by, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := db.QueryRow(ctx, q, v.QuestionID, v.VersionNumber, v.Snapshot, v.ChangedBy, v.Reason).
		Scan(&v.ID, &v.CreatedAt)
	return errorz.FromDB(err)
}

// Repository reads question snapshots.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a versions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByQuestion returns snapshots for a question, newest first.
func (r *Repository) ListByQuestion(ctx context.Context, questionID int64) ([]models.QuestionVersion, error) {
	const q = `SELECT id, question_id, version_number, snapshot, changed_by, COALESCE(reason,''), created_at
		FROM question_versions WHERE question_id = $1 ORDER BY version_number DESC`
	rows, err := r.pool.Query(ctx, q, questionID)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	defer rows.Close()
	list := make([]models.QuestionVersion, 0)
	for rows.Next() {
		var v models.QuestionVersion
		if err := rows.Scan(&v.ID, &v.QuestionID, &v.VersionNumber, &v.Snapshot, &v.ChangedBy, &v.Reason, &v.CreatedAt); err != nil {
			return nil, errorz.FromDB(err)
		}
		list = append(list, v)
	}
	return list, errorz.FromDB(rows.Err())
}
