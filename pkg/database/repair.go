package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/workflow"
)

// StatusConstraint is the name of the generated CHECK constraint on questions.status.
const StatusConstraint = "questions_status_check"

// StatusCheckSQL builds the ALTER TABLE statement that allows exactly statuses.
func StatusCheckSQL(statuses []workflow.Status) string {
	quoted := make([]string, 0, len(statuses))
	for _, s := range statuses {
		quoted = append(quoted, "'"+strings.ReplaceAll(string(s), "'", "''")+"'")
	}
	return fmt.Sprintf("ALTER TABLE questions ADD CONSTRAINT %s CHECK (status IN (%s))",
		StatusConstraint, strings.Join(quoted, ", "))
}

func statusStrings() []string {
	all := workflow.All()
	out := make([]string, len(all))
	for i, s := range all {
		out[i] = string(s)
	}
	return out
}

// StatusRepairer keeps stored statuses inside the registry.
type StatusRepairer struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStatusRepairer creates a repairer.
func NewStatusRepairer(pool *pgxpool.Pool, logger *zap.Logger) *StatusRepairer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusRepairer{pool: pool, logger: logger}
}

// SyncStatusConstraint repairs existing rows and regenerates the status CHECK constraint from
// the registry, in one transaction. Run at startup after Migrate.
func (r *StatusRepairer) SyncStatusConstraint(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errorz.FromDB(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `ALTER TABLE questions DROP CONSTRAINT IF EXISTS `+StatusConstraint); err != nil {
		return fmt.Errorf("drop status constraint: %w", errorz.FromDB(err))
	}
	n, err := repair(ctx, tx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, StatusCheckSQL(workflow.All())); err != nil {
		return fmt.Errorf("add status constraint: %w", errorz.FromDB(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return errorz.FromDB(err)
	}
	r.logger.Info("status constraint synced", zap.Int("statuses", len(workflow.All())), zap.Int64("repaired", n))
	return nil
}

// RepairStatuses rewrites legacy aliases to their registry state and anything else unknown to
// the initial state. Returns the number of rows changed.
func (r *StatusRepairer) RepairStatuses(ctx context.Context) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, errorz.FromDB(err)
	}
	defer tx.Rollback(ctx)

	n, err := repair(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errorz.FromDB(err)
	}
	if n > 0 {
		r.logger.Warn("repaired question statuses", zap.Int64("rows", n))
	}
	return n, nil
}

func repair(ctx context.Context, tx pgx.Tx) (int64, error) {
	var total int64
	for alias, target := range workflow.Aliases() {
		tag, err := tx.Exec(ctx, `UPDATE questions SET status = $2, updated_at = NOW() WHERE status = $1`, alias, string(target))
		if err != nil {
			return 0, fmt.Errorf("map alias %s: %w", alias, errorz.FromDB(err))
		}
		total += tag.RowsAffected()
	}
	tag, err := tx.Exec(ctx, `UPDATE questions SET status = $1, updated_at = NOW() WHERE NOT (status = ANY($2))`,
		string(workflow.Initial()), statusStrings())
	if err != nil {
		return 0, fmt.Errorf("reset unknown statuses: %w", errorz.FromDB(err))
	}
	return total + tag.RowsAffected(), nil
}
