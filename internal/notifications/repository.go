package notifications

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/models"
)

// Repository handles notification persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an unread notification.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (user_id, title, body, kind, link)
		VALUES ($1, $2, $3, $4, NULLIF($5,''))
		RETURNING id, is_read, created_at`
	err := r.pool.QueryRow(ctx, q, n.UserID, n.Title, n.Body, n.Kind, n.Link).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	return errorz.FromDB(err)
}

// ListByUser returns a user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT id, user_id, title, body, kind, COALESCE(link,''), is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, q, userID, unreadOnly, limit)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	defer rows.Close()
	list := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Kind, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, errorz.FromDB(err)
		}
		list = append(list, n)
	}
	return list, errorz.FromDB(rows.Err())
}

// MarkRead flags a notification as read. Only the recipient may do so.
func (r *Repository) MarkRead(ctx context.Context, id, userID int64) error {
	const q = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return errorz.FromDB(err)
	}
	if tag.RowsAffected() == 0 {
		return errorz.ErrNotFound
	}
	return nil
}
