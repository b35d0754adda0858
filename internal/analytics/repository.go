package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/workflow"
)

// Repository runs the aggregate queries behind the pipeline summary.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountByStatus returns the number of questions per stored status.
func (r *Repository) CountByStatus(ctx context.Context) (map[workflow.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM questions GROUP BY status`)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	defer rows.Close()
	out := make(map[workflow.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errorz.FromDB(err)
		}
		out[workflow.Normalize(status)] += n
	}
	return out, errorz.FromDB(rows.Err())
}

// TypesettingStats returns finished typesetting jobs and their mean duration in seconds.
func (r *Repository) TypesettingStats(ctx context.Context) (finished int, avgSeconds float64, err error) {
	const q = `SELECT COUNT(*), COALESCE(AVG(EXTRACT(EPOCH FROM typesetting_finished_at - typesetting_started_at)), 0)::float8
		FROM questions
		WHERE typesetting_started_at IS NOT NULL AND typesetting_finished_at IS NOT NULL`
	err = r.pool.QueryRow(ctx, q).Scan(&finished, &avgSeconds)
	return finished, avgSeconds, errorz.FromDB(err)
}

// OpenRevisionNotes counts unresolved revision notes.
func (r *Repository) OpenRevisionNotes(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM revision_notes WHERE NOT resolved`).Scan(&n)
	return n, errorz.FromDB(err)
}
