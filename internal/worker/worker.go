package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/realtime"
	"github.com/examflow/editorial/pkg/queue"
)

// NotificationStore persists a notification row.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Publisher pushes an event to every instance holding the user's sockets.
type Publisher interface {
	PublishUserEvent(ctx context.Context, userID int64, event string, payload any) error
}

// ErrPermanent marks a job that can never succeed. Such jobs go straight to the DLQ.
var ErrPermanent = errors.New("permanent job failure")

// JobQueue is the part of the Redis queue the worker loop needs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
	DeadLetter(ctx context.Context, job *queue.Job) error
}

// NotificationProcessor processes notification jobs: insert the row, then push it live.
type NotificationProcessor struct {
	store     NotificationStore
	publisher Publisher
	queue     JobQueue
	logger    *zap.Logger
	backoff   time.Duration
}

// NewNotificationProcessor creates a notification processor. publisher may be nil to skip live push.
func NewNotificationProcessor(store NotificationStore, publisher Publisher, q JobQueue, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{store: store, publisher: publisher, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one notification job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("%w: unknown job type: %s", ErrPermanent, job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %v", ErrPermanent, err)
	}
	if payload.UserID <= 0 {
		return fmt.Errorf("%w: notification job %s has no recipient", ErrPermanent, job.ID)
	}

	n := &models.Notification{
		UserID: payload.UserID,
		Title:  payload.Title,
		Body:   payload.Body,
		Kind:   payload.Kind,
		Link:   payload.Link,
	}
	if err := p.store.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	// The row is stored; a failed push only means the client sees it on its next fetch.
	if p.publisher != nil {
		if err := p.publisher.PublishUserEvent(ctx, n.UserID, realtime.EventNotification, n); err != nil {
			p.logger.Warn("publish notification failed", zap.Int64("user_id", n.UserID), zap.Error(err))
		}
	}
	p.logger.Debug("notification delivered", zap.String("job_id", job.ID), zap.Int64("user_id", n.UserID))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. Permanent failures skip retries.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if errors.Is(err, ErrPermanent) {
				if dlqErr := p.queue.DeadLetter(ctx, job); dlqErr != nil {
					p.logger.Error("dead letter failed", zap.Error(dlqErr))
				}
				continue
			}
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
