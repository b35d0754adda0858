package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/workflow"
	"github.com/examflow/editorial/pkg/queue"
)

// deliverTimeout bounds one recipient's delivery so a slow collaborator never blocks the caller long.
const deliverTimeout = 3 * time.Second

// Enqueuer hands a notification to the async worker.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, payload queue.NotificationPayload) error
}

// Store is the notification collaborator's create operation.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Recipients lists active users for announcements.
type Recipients interface {
	ListActiveIDs(ctx context.Context, teamID *int64) ([]int64, error)
}

// Message is one notification to one user.
type Message struct {
	UserID int64
	Title  string
	Body   string
	Kind   string
	Link   string
}

// Dispatcher delivers notifications on a best-effort basis. None of its methods return
// delivery errors to the caller: failures are logged and dropped.
type Dispatcher struct {
	queue      Enqueuer
	store      Store
	recipients Recipients
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher. q may be nil to always write directly through store.
func NewDispatcher(q Enqueuer, store Store, recipients Recipients, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{queue: q, store: store, recipients: recipients, logger: logger}
}

// Notify delivers msg and swallows any failure.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	if err := d.deliver(ctx, msg); err != nil {
		d.logger.Warn("notification dropped",
			zap.Int64("user_id", msg.UserID),
			zap.String("kind", msg.Kind),
			zap.Error(err),
		)
	}
}

// StatusChanged tells the question's author about a transition unless the author made it.
func (d *Dispatcher) StatusChanged(ctx context.Context, q *models.Question, actor models.Actor, from workflow.Status) {
	recipient, ok := StatusRecipient(q, actor)
	if !ok {
		return
	}
	d.Notify(ctx, Message{
		UserID: recipient,
		Title:  fmt.Sprintf("Question #%d: %s", q.ID, q.Status()),
		Body:   fmt.Sprintf("Status changed from %s to %s.", from, q.Status()),
		Kind:   models.NotificationKindStatusChange,
		Link:   QuestionLink(q.ID),
	})
}

// ContentChanged tells the assigned typesetter that a question they worked on was revised.
func (d *Dispatcher) ContentChanged(ctx context.Context, q *models.Question, actor models.Actor) {
	if q.TypesetterID == nil || *q.TypesetterID == actor.ID {
		return
	}
	d.Notify(ctx, Message{
		UserID: *q.TypesetterID,
		Title:  fmt.Sprintf("Question #%d revised", q.ID),
		Body:   fmt.Sprintf("The author updated the content (version %d).", q.Version),
		Kind:   models.NotificationKindContentUpdated,
		Link:   QuestionLink(q.ID),
	})
}

// AnnounceResult counts per-recipient outcomes of a fan-out.
type AnnounceResult struct {
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
	Failed     int `json:"failed"`
}

// Announce sends the same message to every active user, optionally limited to one team.
// Individual failures are counted, never fatal. Only failing to list recipients is an error.
func (d *Dispatcher) Announce(ctx context.Context, teamID *int64, title, body, link string) (AnnounceResult, error) {
	ids, err := d.recipients.ListActiveIDs(ctx, teamID)
	if err != nil {
		return AnnounceResult{}, fmt.Errorf("list recipients: %w", err)
	}
	res := AnnounceResult{Recipients: len(ids)}
	for _, id := range ids {
		err := d.deliver(ctx, Message{UserID: id, Title: title, Body: body, Kind: models.NotificationKindAnnouncement, Link: link})
		if err != nil {
			res.Failed++
			d.logger.Warn("announcement delivery failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		res.Delivered++
	}
	d.logger.Info("announcement sent",
		zap.Int("recipients", res.Recipients),
		zap.Int("delivered", res.Delivered),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// deliver tries the queue first and falls back to a direct write.
func (d *Dispatcher) deliver(ctx context.Context, msg Message) error {
	// Delivery outlives the request that triggered it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()

	var queueErr error
	if d.queue != nil {
		queueErr = d.queue.EnqueueNotification(ctx, queue.NotificationPayload{
			UserID: msg.UserID,
			Title:  msg.Title,
			Body:   msg.Body,
			Kind:   msg.Kind,
			Link:   msg.Link,
		})
		if queueErr == nil {
			return nil
		}
		d.logger.Debug("enqueue notification failed, writing directly", zap.Error(queueErr))
	}
	if d.store == nil {
		return fmt.Errorf("%w: %v", errorz.ErrDependencyUnavailable, queueErr)
	}
	n := &models.Notification{UserID: msg.UserID, Title: msg.Title, Body: msg.Body, Kind: msg.Kind, Link: msg.Link}
	if err := d.store.Create(ctx, n); err != nil {
		return fmt.Errorf("%w: %v", errorz.ErrDependencyUnavailable, errors.Join(queueErr, err))
	}
	return nil
}

// StatusRecipient returns who hears about a status change: the author, unless the author acted.
func StatusRecipient(q *models.Question, actor models.Actor) (int64, bool) {
	if q.CreatorID == nil || *q.CreatorID == actor.ID {
		return 0, false
	}
	return *q.CreatorID, true
}

// QuestionLink is the client route for a question.
func QuestionLink(id int64) string {
	return fmt.Sprintf("/questions/%d", id)
}
