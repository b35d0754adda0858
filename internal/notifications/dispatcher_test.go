package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/workflow"
	"github.com/examflow/editorial/pkg/queue"
)

type fakeQueue struct {
	mu      sync.Mutex
	err     error
	payload []queue.NotificationPayload
}

func (f *fakeQueue) EnqueueNotification(_ context.Context, p queue.NotificationPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.payload = append(f.payload, p)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	failFor map[int64]bool
	created []*models.Notification
}

func (f *fakeStore) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.UserID] {
		return errors.New("insert failed")
	}
	f.created = append(f.created, n)
	return nil
}

type fakeRecipients struct {
	ids []int64
	err error
}

func (f fakeRecipients) ListActiveIDs(context.Context, *int64) ([]int64, error) {
	return f.ids, f.err
}

func int64Ptr(v int64) *int64 { return &v }

func question(creator, typesetter *int64) *models.Question {
	return &models.Question{
		ID:           42,
		CreatorID:    creator,
		TypesetterID: typesetter,
		State:        workflow.RestoreState(workflow.StatusTypesettingQueued, false, false),
		Version:      1,
	}
}

func TestStatusChangedSkipsSelfNotification(t *testing.T) {
	q := &fakeQueue{}
	d := NewDispatcher(q, &fakeStore{}, nil, nil)

	d.StatusChanged(context.Background(), question(int64Ptr(1), nil), models.Actor{ID: 1, Role: models.RoleAuthor}, workflow.StatusDraft)
	assert.Empty(t, q.payload)

	d.StatusChanged(context.Background(), question(int64Ptr(1), nil), models.Actor{ID: 5, Role: models.RoleReviewer}, workflow.StatusDraft)
	require.Len(t, q.payload, 1)
	assert.Equal(t, int64(1), q.payload[0].UserID)
	assert.Equal(t, models.NotificationKindStatusChange, q.payload[0].Kind)
	assert.Equal(t, "/questions/42", q.payload[0].Link)
}

func TestStatusChangedWithoutAuthor(t *testing.T) {
	q := &fakeQueue{}
	d := NewDispatcher(q, &fakeStore{}, nil, nil)
	d.StatusChanged(context.Background(), question(nil, nil), models.Actor{ID: 5}, workflow.StatusDraft)
	assert.Empty(t, q.payload)
}

func TestNotifyFallsBackToStore(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis down")}
	s := &fakeStore{}
	d := NewDispatcher(q, s, nil, nil)

	d.Notify(context.Background(), Message{UserID: 3, Title: "t", Kind: models.NotificationKindStatusChange})
	require.Len(t, s.created, 1)
	assert.Equal(t, int64(3), s.created[0].UserID)
}

func TestNotifySwallowsTotalFailure(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis down")}
	s := &fakeStore{failFor: map[int64]bool{3: true}}
	d := NewDispatcher(q, s, nil, nil)

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Message{UserID: 3})
	})
	assert.Empty(t, s.created)
}

func TestNotifySurvivesCanceledCaller(t *testing.T) {
	q := &fakeQueue{}
	d := NewDispatcher(q, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, Message{UserID: 8})
	assert.Len(t, q.payload, 1)
}

func TestContentChangedNotifiesTypesetter(t *testing.T) {
	q := &fakeQueue{}
	d := NewDispatcher(q, nil, nil, nil)

	d.ContentChanged(context.Background(), question(int64Ptr(1), nil), models.Actor{ID: 1})
	assert.Empty(t, q.payload)

	d.ContentChanged(context.Background(), question(int64Ptr(1), int64Ptr(9)), models.Actor{ID: 1})
	require.Len(t, q.payload, 1)
	assert.Equal(t, int64(9), q.payload[0].UserID)
	assert.Equal(t, models.NotificationKindContentUpdated, q.payload[0].Kind)
}

func TestAnnouncePartialSuccess(t *testing.T) {
	s := &fakeStore{failFor: map[int64]bool{2: true}}
	d := NewDispatcher(nil, s, fakeRecipients{ids: []int64{1, 2, 3}}, nil)

	res, err := d.Announce(context.Background(), nil, "Deadline", "Submit by Friday", "")
	require.NoError(t, err)
	assert.Equal(t, AnnounceResult{Recipients: 3, Delivered: 2, Failed: 1}, res)
	assert.Len(t, s.created, 2)
	for _, n := range s.created {
		assert.Equal(t, models.NotificationKindAnnouncement, n.Kind)
	}
}

func TestAnnounceRecipientListFailure(t *testing.T) {
	d := NewDispatcher(nil, &fakeStore{}, fakeRecipients{err: errors.New("db down")}, nil)
	_, err := d.Announce(context.Background(), int64Ptr(4), "t", "b", "")
	assert.Error(t, err)
}
