package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/realtime"
	"github.com/examflow/editorial/pkg/queue"
)

type fakeStore struct {
	mu      sync.Mutex
	created []models.Notification
	err     error
}

func (f *fakeStore) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	n.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *n)
	return nil
}

type published struct {
	userID int64
	event  string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (f *fakePublisher) PublishUserEvent(_ context.Context, userID int64, event string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{userID: userID, event: event})
	return f.err
}

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
	dead    []*queue.Job
}

func (f *fakeQueue) Dequeue(context.Context) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
		f.mu.Lock()
		return nil, nil
	}
	j := f.jobs[0]
	f.jobs = f.jobs[1:]
	return j, nil
}

func (f *fakeQueue) Retry(_ context.Context, j *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j.Attempt++
	f.retried = append(f.retried, j)
	return nil
}

func (f *fakeQueue) DeadLetter(_ context.Context, j *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead = append(f.dead, j)
	return nil
}

func notificationJob(t *testing.T, userID int64) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(queue.JobTypeNotification, queue.NotificationPayload{
		UserID: userID, Title: "Question #42", Body: "status changed", Kind: models.NotificationKindStatusChange, Link: "/questions/42",
	})
	require.NoError(t, err)
	return job
}

func TestProcessStoresThenPublishes(t *testing.T) {
	store, pub := &fakeStore{}, &fakePublisher{}
	p := NewNotificationProcessor(store, pub, &fakeQueue{}, nil)

	require.NoError(t, p.Process(context.Background(), notificationJob(t, 7)))

	require.Len(t, store.created, 1)
	assert.Equal(t, int64(7), store.created[0].UserID)
	assert.Equal(t, "/questions/42", store.created[0].Link)
	assert.Equal(t, []published{{userID: 7, event: realtime.EventNotification}}, pub.events)
}

func TestProcessPublishFailureIsNotAJobFailure(t *testing.T) {
	store, pub := &fakeStore{}, &fakePublisher{err: errors.New("redis down")}
	p := NewNotificationProcessor(store, pub, &fakeQueue{}, nil)
	assert.NoError(t, p.Process(context.Background(), notificationJob(t, 7)))
	assert.Len(t, store.created, 1)
}

func TestProcessRejectsBadJobs(t *testing.T) {
	p := NewNotificationProcessor(&fakeStore{}, nil, &fakeQueue{}, nil)

	assert.ErrorIs(t, p.Process(context.Background(), &queue.Job{ID: "x", Type: "other"}), ErrPermanent)
	assert.ErrorIs(t, p.Process(context.Background(), &queue.Job{ID: "x", Type: queue.JobTypeNotification, Payload: []byte("{")}), ErrPermanent)
	assert.ErrorIs(t, p.Process(context.Background(), notificationJob(t, 0)), ErrPermanent)
}

func TestProcessStoreFailureIsRetryable(t *testing.T) {
	p := NewNotificationProcessor(&fakeStore{err: errors.New("db down")}, nil, &fakeQueue{}, nil)
	err := p.Process(context.Background(), notificationJob(t, 7))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermanent)
}

func TestRunDeadLettersPermanentFailures(t *testing.T) {
	bad := []*queue.Job{
		{ID: "unknown", Type: "other"},
		{ID: "garbled", Type: queue.JobTypeNotification, Payload: []byte("{")},
		notificationJob(t, 0),
	}
	q := &fakeQueue{jobs: append([]*queue.Job{}, bad...)}
	p := NewNotificationProcessor(&fakeStore{}, nil, q, nil)
	p.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.dead) == len(bad)
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Empty(t, q.retried)
	for i, j := range q.dead {
		assert.Equal(t, bad[i].ID, j.ID)
		assert.Zero(t, j.Attempt)
	}
}

func TestRunRetriesFailedJobs(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	q := &fakeQueue{jobs: []*queue.Job{notificationJob(t, 7)}}
	p := NewNotificationProcessor(store, nil, q, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.retried) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, q.retried[0].Attempt)
}
