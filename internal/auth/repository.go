package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.email, u.password_hash, u.full_name, u.role,
	u.field_reviewer, u.language_reviewer, u.team_id, u.active,
	COALESCE(ARRAY(SELECT subject_id FROM user_subjects s WHERE s.user_id = u.id ORDER BY subject_id), '{}'),
	u.created_at, u.updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role,
		&u.FieldReviewer, &u.LanguageReviewer, &u.TeamID, &u.Active,
		&u.SubjectIDs, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE lower(u.email) = lower($1)`, email))
}

// CreateUserParams holds the fields accepted at registration.
type CreateUserParams struct {
	Email            string
	PasswordHash     string
	FullName         string
	Role             models.Role
	FieldReviewer    bool
	LanguageReviewer bool
	TeamID           *int64
	SubjectIDs       []int64
}

// Create inserts a new user and their subject areas in one transaction.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO users (email, password_hash, full_name, role, field_reviewer, language_reviewer, team_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	if err := tx.QueryRow(ctx, q, p.Email, p.PasswordHash, p.FullName, string(p.Role),
		p.FieldReviewer, p.LanguageReviewer, p.TeamID).Scan(&id); err != nil {
		return nil, errorz.FromDB(err)
	}
	for _, sid := range p.SubjectIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO user_subjects (user_id, subject_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, sid); err != nil {
			return nil, errorz.FromDB(err)
		}
	}
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errorz.FromDB(err)
	}
	return u, nil
}

// ListActiveIDs returns the ids of active users, optionally limited to one team.
func (r *Repository) ListActiveIDs(ctx context.Context, teamID *int64) ([]int64, error) {
	const q = `SELECT id FROM users WHERE active AND ($1::bigint IS NULL OR team_id = $1) ORDER BY id`
	rows, err := r.pool.Query(ctx, q, teamID)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	return ids, errorz.FromDB(err)
}

// List returns all users for admin screens.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.full_name, u.email`)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	defer rows.Close()
	list := make([]models.UserPublic, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, errorz.FromDB(rows.Err())
}
