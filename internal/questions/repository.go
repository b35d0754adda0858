package questions

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/versions"
	"github.com/examflow/editorial/internal/workflow"
)

// Repository handles question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const questionColumns = `id, body, image_url, file_url, option_a, option_b, option_c, option_d, option_e,
	correct_answer, difficulty, subject_id, creator_id, typesetter_id,
	status, field_approved, language_approved, version, revision_note,
	created_at, updated_at, typesetting_started_at, typesetting_finished_at`

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var (
		q                   models.Question
		status              string
		fieldOK, languageOK bool
	)
	err := row.Scan(&q.ID, &q.Body, &q.ImageURL, &q.FileURL,
		&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.OptionE,
		&q.CorrectAnswer, &q.Difficulty, &q.SubjectID, &q.CreatorID, &q.TypesetterID,
		&status, &fieldOK, &languageOK, &q.Version, &q.RevisionNote,
		&q.CreatedAt, &q.UpdatedAt, &q.TypesettingStartedAt, &q.TypesettingFinishedAt)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	q.State = workflow.RestoreState(workflow.Normalize(status), fieldOK, languageOK)
	return &q, nil
}

// GetByID returns a question by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// List returns questions matching f, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Question, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.CreatorID != nil {
		add("creator_id = $%d", *f.CreatorID)
	}
	if f.TypesetterID != nil {
		add("typesetter_id = $%d", *f.TypesetterID)
	}
	if f.SubjectID != nil {
		add("subject_id = $%d", *f.SubjectID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT ` + questionColumns + ` FROM questions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, max(f.Offset, 0))
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	defer rows.Close()
	list := make([]models.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *q)
	}
	return list, errorz.FromDB(rows.Err())
}

// Create inserts a new question in its initial state.
func (r *Repository) Create(ctx context.Context, q *models.Question) error {
	const query = `INSERT INTO questions (body, image_url, file_url, option_a, option_b, option_c, option_d, option_e,
		correct_answer, difficulty, subject_id, creator_id, status, field_approved, language_approved, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, q.Body, q.ImageURL, q.FileURL,
		q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.OptionE,
		q.CorrectAnswer, q.Difficulty, q.SubjectID, q.CreatorID,
		string(q.Status()), q.State.FieldApproved(), q.State.LanguageApproved(), q.Version).
		Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	return errorz.FromDB(err)
}

// Delete removes a question; versions, notes and typesetting history cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return errorz.FromDB(err)
	}
	if tag.RowsAffected() == 0 {
		return errorz.ErrNotFound
	}
	return nil
}

// CompactIDs renumbers questions 1..N in id order and resets the sequence.
// Child rows follow through ON UPDATE CASCADE. Returns the number of rows renumbered.
func (r *Repository) CompactIDs(ctx context.Context) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, errorz.FromDB(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE questions IN ACCESS EXCLUSIVE MODE`); err != nil {
		return 0, errorz.FromDB(err)
	}
	// Two passes so new ids never collide with old ones mid-update.
	const shift = `UPDATE questions SET id = -id`
	const renumber = `UPDATE questions q SET id = m.rn
		FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY id DESC) AS rn FROM questions) m
		WHERE q.id = m.id`
	if _, err := tx.Exec(ctx, shift); err != nil {
		return 0, errorz.FromDB(err)
	}
	tag, err := tx.Exec(ctx, renumber)
	if err != nil {
		return 0, errorz.FromDB(err)
	}
	const reset = `SELECT setval(pg_get_serial_sequence('questions', 'id'), COALESCE((SELECT MAX(id) FROM questions), 0) + 1, false)`
	if _, err := tx.Exec(ctx, reset); err != nil {
		return 0, errorz.FromDB(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errorz.FromDB(err)
	}
	return tag.RowsAffected(), nil
}

// ListVersions returns snapshots for a question, newest first.
func (r *Repository) ListVersions(ctx context.Context, questionID int64) ([]models.QuestionVersion, error) {
	return versions.NewRepository(r.pool).ListByQuestion(ctx, questionID)
}

// ListNotes returns revision notes, oldest first.
func (r *Repository) ListNotes(ctx context.Context, questionID int64) ([]models.RevisionNote, error) {
	const q = `SELECT id, question_id, author_id, COALESCE(selected_text,''), note, COALESCE(review_kind,''), resolved, created_at
		FROM revision_notes WHERE question_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, questionID)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	defer rows.Close()
	list := make([]models.RevisionNote, 0)
	for rows.Next() {
		var n models.RevisionNote
		var kind string
		if err := rows.Scan(&n.ID, &n.QuestionID, &n.AuthorID, &n.SelectedText, &n.Note, &kind, &n.Resolved, &n.CreatedAt); err != nil {
			return nil, errorz.FromDB(err)
		}
		n.ReviewKind = workflow.ReviewKind(kind)
		list = append(list, n)
	}
	return list, errorz.FromDB(rows.Err())
}

// ListTypesetting returns typesetting passes, oldest first.
func (r *Repository) ListTypesetting(ctx context.Context, questionID int64) ([]models.TypesettingEntry, error) {
	const q = `SELECT id, question_id, typesetter_id, COALESCE(notes,''), file_url, created_at
		FROM typesetting_history WHERE question_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, questionID)
	if err != nil {
		return nil, errorz.FromDB(err)
	}
	defer rows.Close()
	list := make([]models.TypesettingEntry, 0)
	for rows.Next() {
		var e models.TypesettingEntry
		if err := rows.Scan(&e.ID, &e.QuestionID, &e.TypesetterID, &e.Notes, &e.FileURL, &e.CreatedAt); err != nil {
			return nil, errorz.FromDB(err)
		}
		list = append(list, e)
	}
	return list, errorz.FromDB(rows.Err())
}

// WithLock implements Store.
func (r *Repository) WithLock(ctx context.Context, id int64, fn func(tx Tx, locked *models.Question) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errorz.FromDB(err)
	}
	defer tx.Rollback(ctx)

	locked, err := scanQuestion(tx.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return err
	}
	if err := fn(&lockedTx{tx: tx}, locked); err != nil {
		return err
	}
	return errorz.FromDB(tx.Commit(ctx))
}

type lockedTx struct {
	tx pgx.Tx
}

func (t *lockedTx) Update(ctx context.Context, q *models.Question) error {
	const query = `UPDATE questions SET
		body = $2, image_url = $3, file_url = $4,
		option_a = $5, option_b = $6, option_c = $7, option_d = $8, option_e = $9,
		correct_answer = $10, difficulty = $11, subject_id = $12, typesetter_id = $13,
		status = $14, field_approved = $15, language_approved = $16, version = $17, revision_note = $18,
		typesetting_started_at = $19, typesetting_finished_at = $20, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := t.tx.QueryRow(ctx, query, q.ID, q.Body, q.ImageURL, q.FileURL,
		q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.OptionE,
		q.CorrectAnswer, q.Difficulty, q.SubjectID, q.TypesetterID,
		string(q.Status()), q.State.FieldApproved(), q.State.LanguageApproved(), q.Version, q.RevisionNote,
		q.TypesettingStartedAt, q.TypesettingFinishedAt).
		Scan(&q.UpdatedAt)
	return errorz.FromDB(err)
}

func (t *lockedTx) InsertVersion(ctx context.Context, v *models.QuestionVersion) error {
	return versions.Insert(ctx, t.tx, v)
}

func (t *lockedTx) InsertNote(ctx context.Context, n *models.RevisionNote) error {
	const q = `INSERT INTO revision_notes (question_id, author_id, selected_text, note, review_kind)
		VALUES ($1, $2, NULLIF($3,''), $4, NULLIF($5,''))
		RETURNING id, resolved, created_at`
	err := t.tx.QueryRow(ctx, q, n.QuestionID, n.AuthorID, n.SelectedText, n.Note, string(n.ReviewKind)).
		Scan(&n.ID, &n.Resolved, &n.CreatedAt)
	return errorz.FromDB(err)
}

func (t *lockedTx) ResolveNotes(ctx context.Context, questionID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE revision_notes SET resolved = TRUE WHERE question_id = $1 AND NOT resolved`, questionID)
	return errorz.FromDB(err)
}

func (t *lockedTx) InsertTypesetting(ctx context.Context, e *models.TypesettingEntry) error {
	const q = `INSERT INTO typesetting_history (question_id, typesetter_id, notes, file_url)
		VALUES ($1, $2, NULLIF($3,''), $4)
		RETURNING id, created_at`
	err := t.tx.QueryRow(ctx, q, e.QuestionID, e.TypesetterID, e.Notes, e.FileURL).Scan(&e.ID, &e.CreatedAt)
	return errorz.FromDB(err)
}
