package questions

import (
	"context"

	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/workflow"
)

// ListFilter narrows GET /questions. Zero values mean no filter.
type ListFilter struct {
	Status       workflow.Status
	CreatorID    *int64
	TypesetterID *int64
	SubjectID    *int64
	Limit        int
	Offset       int
}

// Store is the persistence the lifecycle service needs.
type Store interface {
	GetByID(ctx context.Context, id int64) (*models.Question, error)
	List(ctx context.Context, f ListFilter) ([]models.Question, error)
	Create(ctx context.Context, q *models.Question) error
	Delete(ctx context.Context, id int64) error
	CompactIDs(ctx context.Context) (int64, error)
	ListVersions(ctx context.Context, questionID int64) ([]models.QuestionVersion, error)
	ListNotes(ctx context.Context, questionID int64) ([]models.RevisionNote, error)
	ListTypesetting(ctx context.Context, questionID int64) ([]models.TypesettingEntry, error)
	// WithLock runs fn in a transaction holding a row lock on the question.
	// fn's error rolls the transaction back.
	WithLock(ctx context.Context, id int64, fn func(tx Tx, locked *models.Question) error) error
}

// Tx is the set of writes allowed while a question row is locked.
type Tx interface {
	Update(ctx context.Context, q *models.Question) error
	InsertVersion(ctx context.Context, v *models.QuestionVersion) error
	InsertNote(ctx context.Context, n *models.RevisionNote) error
	ResolveNotes(ctx context.Context, questionID int64) error
	InsertTypesetting(ctx context.Context, e *models.TypesettingEntry) error
}

// Notifier receives post-commit events.
type Notifier interface {
	StatusChanged(ctx context.Context, q *models.Question, actor models.Actor, from workflow.Status)
	ContentChanged(ctx context.Context, q *models.Question, actor models.Actor)
}
