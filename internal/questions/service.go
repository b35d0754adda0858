package questions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/versions"
	"github.com/examflow/editorial/internal/workflow"
)

// ChangeStatusRequest is the body for POST /questions/:id/status.
type ChangeStatusRequest struct {
	Status       string `json:"status" binding:"required"`
	Note         string `json:"note"`
	ReviewKind   string `json:"review_kind"`
	SelectedText string `json:"selected_text"`
	FileURL      string `json:"file_url"`
}

// AdminTimeout bounds table-wide maintenance such as CompactIDs, which holds an exclusive lock.
const AdminTimeout = 2 * time.Minute

// Service runs the question lifecycle: authorize, apply in one transaction, notify after commit.
type Service struct {
	store        Store
	notifier     Notifier
	timeout      time.Duration
	adminTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates the lifecycle service. timeout bounds each call; zero disables the bound.
func NewService(store Store, notifier Notifier, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		notifier:     notifier,
		timeout:      timeout,
		adminTimeout: AdminTimeout,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return boundBy(ctx, s.timeout)
}

func boundBy(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// classify turns bare context errors into ErrTimeout. Repository errors are already classified.
func classify(err error) error {
	if err == nil || errorz.Kind(err) != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", errorz.ErrTimeout, err)
	}
	return err
}

// Get returns one question.
func (s *Service) Get(ctx context.Context, id int64) (*models.Question, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	q, err := s.store.GetByID(ctx, id)
	return q, classify(err)
}

// List returns questions matching f.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Question, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	list, err := s.store.List(ctx, f)
	return list, classify(err)
}

// Create stores a new draft owned by actor.
func (s *Service) Create(ctx context.Context, in NewQuestion, actor models.Actor) (*models.Question, error) {
	if actor.Role != models.RoleAuthor && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only authors create questions", errorz.ErrForbidden)
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	content := in.content()
	if err := validateContent(&content); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.HasSubject(content.SubjectID) {
		return nil, fmt.Errorf("%w: no access to subject %d", errorz.ErrForbidden, content.SubjectID)
	}

	creator := actor.ID
	q := &models.Question{
		Content:   content,
		CreatorID: &creator,
		State:     workflow.NewState(),
		Version:   1,
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.store.Create(ctx, q); err != nil {
		return nil, classify(err)
	}
	s.logger.Info("question created", zap.Int64("question_id", q.ID), zap.Int64("user_id", actor.ID))
	return q, nil
}

// ChangeStatus moves a question to req.Status on behalf of actor.
func (s *Service) ChangeStatus(ctx context.Context, id int64, req ChangeStatusRequest, actor models.Actor) (*models.Question, error) {
	target, ok := workflow.Parse(req.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errorz.ErrInvalidTarget, req.Status)
	}
	kind := workflow.ReviewKind(req.ReviewKind)
	if kind != "" && !kind.Valid() {
		return nil, errorz.NewValidation(map[string]string{"review_kind": "must be field or language"})
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}

	if target == workflow.StatusTypesettingInProgress && actor.Role == models.RoleTypesetter &&
		cur.TypesetterID != nil && !cur.IsTypesetter(actor.ID) {
		return nil, fmt.Errorf("%w: question %d already claimed by another typesetter", errorz.ErrConflict, id)
	}

	dec := workflow.Authorize(workflow.Input{
		Role:                  actor.Role,
		FieldReviewer:         actor.FieldReviewer,
		LanguageReviewer:      actor.LanguageReviewer,
		IsOwner:               cur.IsOwner(actor.ID),
		IsAssignedTypesetter:  cur.IsTypesetter(actor.ID),
		HasAssignedTypesetter: cur.TypesetterID != nil,
		Current:               cur.Status(),
		Requested:             target,
	})
	if !dec.Allowed {
		if dec.Reason == workflow.ReasonInvalidTarget {
			return nil, fmt.Errorf("%w: %s", errorz.ErrInvalidTarget, target)
		}
		return nil, fmt.Errorf("%w: %s may not move question %d from %s to %s",
			errorz.ErrForbidden, actor.Role, id, cur.Status(), target)
	}
	if target == cur.Status() {
		return cur, nil
	}
	if target == workflow.StatusCompleted && !actor.IsAdmin() && !cur.State.BothApproved() {
		return nil, fmt.Errorf("%w: both approvals required", errorz.ErrForbidden)
	}

	var updated *models.Question
	err = s.store.WithLock(ctx, id, func(tx Tx, locked *models.Question) error {
		if err := unchanged(cur, locked); err != nil {
			return err
		}
		next, err := s.applyTransition(ctx, tx, locked, target, dec.Effect, req, kind, actor)
		if err != nil {
			return err
		}
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("question status changed",
		zap.Int64("question_id", id),
		zap.String("from", cur.Status().String()),
		zap.String("status", target.String()),
		zap.Int64("user_id", actor.ID),
	)
	s.notifier.StatusChanged(ctx, updated, actor, cur.Status())
	return updated, nil
}

// applyTransition builds the post-transition record and writes the child rows that go with it.
func (s *Service) applyTransition(ctx context.Context, tx Tx, locked *models.Question, target workflow.Status,
	effect workflow.Effect, req ChangeStatusRequest, kind workflow.ReviewKind, actor models.Actor) (*models.Question, error) {
	next := locked.Clone()
	next.State.Transition(target, effect)
	now := s.now()
	note := strings.TrimSpace(req.Note)

	switch {
	case target == workflow.StatusTypesettingInProgress:
		if next.TypesetterID == nil && actor.Role == models.RoleTypesetter {
			next.TypesetterID = &actor.ID
		}
		next.TypesettingStartedAt = &now

	case target == workflow.StatusTypesettingDone:
		snap, err := versions.Snapshot(locked, actor, versions.ReasonTypesettingComplete)
		if err != nil {
			return nil, err
		}
		if err := tx.InsertVersion(ctx, snap); err != nil {
			return nil, err
		}
		if next.TypesetterID == nil && actor.Role == models.RoleTypesetter {
			next.TypesetterID = &actor.ID
		}
		if req.FileURL != "" {
			fileURL := req.FileURL
			next.FileURL = &fileURL
		}
		next.Version++
		next.TypesettingFinishedAt = &now
		entry := &models.TypesettingEntry{
			QuestionID:   next.ID,
			TypesetterID: next.TypesetterID,
			Notes:        note,
			FileURL:      next.FileURL,
		}
		if err := tx.InsertTypesetting(ctx, entry); err != nil {
			return nil, err
		}

	case workflow.IsRevisionRequested(target):
		if note == "" {
			break
		}
		next.RevisionNote = &note
		if kind == "" {
			kind = defaultReviewKind(actor)
		}
		rn := &models.RevisionNote{
			QuestionID:   next.ID,
			AuthorID:     &actor.ID,
			SelectedText: req.SelectedText,
			Note:         note,
			ReviewKind:   kind,
		}
		if err := tx.InsertNote(ctx, rn); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// defaultReviewKind picks the kind for a note that did not name one. Typesetter notes have none.
func defaultReviewKind(actor models.Actor) workflow.ReviewKind {
	switch {
	case actor.LanguageReviewer && !actor.FieldReviewer:
		return workflow.ReviewLanguage
	case actor.FieldReviewer || actor.Role == models.RoleReviewer:
		return workflow.ReviewField
	}
	return ""
}

// unchanged reports ErrConflict when the locked row moved on since it was read for authorization.
func unchanged(read, locked *models.Question) error {
	if read.Status() != locked.Status() ||
		read.Version != locked.Version ||
		!samePtr(read.TypesetterID, locked.TypesetterID) ||
		read.State.FieldApproved() != locked.State.FieldApproved() ||
		read.State.LanguageApproved() != locked.State.LanguageApproved() {
		return fmt.Errorf("%w: question %d was modified concurrently", errorz.ErrConflict, read.ID)
	}
	return nil
}

func samePtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// canEdit reports whether actor may change the content of q.
func canEdit(q *models.Question, actor models.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if q.IsOwner(actor.ID) {
		return true
	}
	return actor.HasSubject(q.SubjectID)
}

// UpdateContent applies patch, snapshotting the previous content and bumping the version.
func (s *Service) UpdateContent(ctx context.Context, id int64, patch ContentPatch, actor models.Actor) (*models.Question, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, errorz.NewValidation(map[string]string{"patch": "no fields to update"})
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if !canEdit(cur, actor) {
		return nil, fmt.Errorf("%w: no edit access to question %d", errorz.ErrForbidden, id)
	}
	if !actor.IsAdmin() && workflow.IsLocked(cur.Status()) {
		return nil, fmt.Errorf("%w: question %d is locked in %s", errorz.ErrForbidden, id, cur.Status())
	}
	if patch.SubjectID != nil && !actor.IsAdmin() && !actor.HasSubject(*patch.SubjectID) {
		return nil, fmt.Errorf("%w: no access to subject %d", errorz.ErrForbidden, *patch.SubjectID)
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != cur.Version {
		return nil, fmt.Errorf("%w: expected version %d, current %d", errorz.ErrConflict, *patch.ExpectedVersion, cur.Version)
	}

	merged := cur.Content
	patch.Apply(&merged)
	if err := validateContent(&merged); err != nil {
		return nil, err
	}

	var updated *models.Question
	err = s.store.WithLock(ctx, id, func(tx Tx, locked *models.Question) error {
		if err := unchanged(cur, locked); err != nil {
			return err
		}
		snap, err := versions.Snapshot(locked, actor, versions.ReasonContentUpdate)
		if err != nil {
			return err
		}
		if err := tx.InsertVersion(ctx, snap); err != nil {
			return err
		}
		next := locked.Clone()
		patch.Apply(&next.Content)
		next.Version++
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		if err := tx.ResolveNotes(ctx, id); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("question content updated",
		zap.Int64("question_id", id),
		zap.Int("version", updated.Version),
		zap.Int64("user_id", actor.ID),
	)
	if workflow.IsRevisionRequested(cur.Status()) {
		s.notifier.ContentChanged(ctx, updated, actor)
	}
	return updated, nil
}

// RestoreVersion rolls the content back to snapshot number. The rollback is a content update
// of its own: the current content is snapshotted first and the version moves forward.
func (s *Service) RestoreVersion(ctx context.Context, id int64, number int, actor models.Actor) (*models.Question, error) {
	list, err := s.Versions(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].VersionNumber != number {
			continue
		}
		old, err := versions.Restore(&list[i])
		if err != nil {
			return nil, err
		}
		return s.UpdateContent(ctx, id, patchFrom(old.Content), actor)
	}
	return nil, fmt.Errorf("%w: question %d has no version %d", errorz.ErrNotFound, id, number)
}

// Delete removes a question and everything attached to it. Admin only.
func (s *Service) Delete(ctx context.Context, id int64, actor models.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins delete questions", errorz.ErrForbidden)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.store.Delete(ctx, id); err != nil {
		return classify(err)
	}
	s.logger.Warn("question deleted", zap.Int64("question_id", id), zap.Int64("user_id", actor.ID))
	return nil
}

// CompactIDs renumbers all questions densely. Admin only.
func (s *Service) CompactIDs(ctx context.Context, actor models.Actor) (int64, error) {
	if !actor.IsAdmin() {
		return 0, fmt.Errorf("%w: only admins compact ids", errorz.ErrForbidden)
	}
	ctx, cancel := boundBy(ctx, s.adminTimeout)
	defer cancel()
	n, err := s.store.CompactIDs(ctx)
	if err != nil {
		return 0, classify(err)
	}
	s.logger.Warn("question ids compacted", zap.Int64("rows", n), zap.Int64("user_id", actor.ID))
	return n, nil
}

// Versions lists snapshots of a question.
func (s *Service) Versions(ctx context.Context, id int64) ([]models.QuestionVersion, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, classify(err)
	}
	list, err := s.store.ListVersions(ctx, id)
	return list, classify(err)
}

// RevisionNotes lists reviewer notes on a question.
func (s *Service) RevisionNotes(ctx context.Context, id int64) ([]models.RevisionNote, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, classify(err)
	}
	list, err := s.store.ListNotes(ctx, id)
	return list, classify(err)
}

// TypesettingHistory lists typesetting passes of a question.
func (s *Service) TypesettingHistory(ctx context.Context, id int64) ([]models.TypesettingEntry, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, classify(err)
	}
	list, err := s.store.ListTypesetting(ctx, id)
	return list, classify(err)
}
