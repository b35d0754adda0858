package questions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/workflow"
	"github.com/examflow/editorial/pkg/queue"
)

// memStore keeps questions in memory. WithLock serializes callers the way a row lock would
// and commits staged writes only when fn succeeds.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	questions map[int64]*models.Question
	versions  []models.QuestionVersion
	notes     []models.RevisionNote
	typeset   []models.TypesettingEntry

	// beforeLock runs after the service has read the row and before WithLock takes it.
	beforeLock  func()
	failUpdate  error
	// compactHook replaces CompactIDs when set.
	compactHook func(ctx context.Context) (int64, error)
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, questions: map[int64]*models.Question{}}
}

func (m *memStore) put(q *models.Question) *models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == 0 {
		q.ID = m.nextID
	}
	if q.ID >= m.nextID {
		m.nextID = q.ID + 1
	}
	m.questions[q.ID] = q.Clone()
	return q
}

func (m *memStore) get(id int64) *models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.questions[id].Clone()
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*models.Question, error) {
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return nil, context.DeadlineExceeded
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, errorz.ErrNotFound
	}
	return q.Clone(), nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Question, 0)
	for _, q := range m.questions {
		if f.Status != "" && q.Status() != f.Status {
			continue
		}
		if f.CreatorID != nil && !q.IsOwner(*f.CreatorID) {
			continue
		}
		if f.TypesetterID != nil && !q.IsTypesetter(*f.TypesetterID) {
			continue
		}
		out = append(out, *q.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) Create(_ context.Context, q *models.Question) error {
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.put(q)
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return errorz.ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

func (m *memStore) CompactIDs(ctx context.Context) (int64, error) {
	if m.compactHook != nil {
		return m.compactHook(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.questions))
	for id := range m.questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	next := make(map[int64]*models.Question, len(ids))
	for i, id := range ids {
		q := m.questions[id]
		q.ID = int64(i + 1)
		next[q.ID] = q
	}
	m.questions = next
	m.nextID = int64(len(ids) + 1)
	return int64(len(ids)), nil
}

func (m *memStore) ListVersions(_ context.Context, id int64) ([]models.QuestionVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QuestionVersion
	for _, v := range m.versions {
		if v.QuestionID == id {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) ListNotes(_ context.Context, id int64) ([]models.RevisionNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RevisionNote
	for _, n := range m.notes {
		if n.QuestionID == id {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) ListTypesetting(_ context.Context, id int64) ([]models.TypesettingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TypesettingEntry
	for _, e := range m.typeset {
		if e.QuestionID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) WithLock(ctx context.Context, id int64, fn func(tx Tx, locked *models.Question) error) error {
	if m.beforeLock != nil {
		m.beforeLock()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return errorz.ErrNotFound
	}
	tx := &memTx{store: m}
	if err := fn(tx, q.Clone()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx.updated != nil {
		m.questions[id] = tx.updated.Clone()
	}
	m.versions = append(m.versions, tx.versions...)
	if tx.resolve {
		for i := range m.notes {
			if m.notes[i].QuestionID == id {
				m.notes[i].Resolved = true
			}
		}
	}
	m.notes = append(m.notes, tx.notes...)
	m.typeset = append(m.typeset, tx.typeset...)
	return nil
}

type memTx struct {
	store    *memStore
	updated  *models.Question
	versions []models.QuestionVersion
	notes    []models.RevisionNote
	typeset  []models.TypesettingEntry
	resolve  bool
}

func (t *memTx) Update(_ context.Context, q *models.Question) error {
	if t.store.failUpdate != nil {
		return t.store.failUpdate
	}
	q.UpdatedAt = time.Now()
	t.updated = q.Clone()
	return nil
}

func (t *memTx) InsertVersion(_ context.Context, v *models.QuestionVersion) error {
	for _, existing := range append(t.store.versions, t.versions...) {
		if existing.QuestionID == v.QuestionID && existing.VersionNumber == v.VersionNumber {
			return errorz.ErrConflict
		}
	}
	v.ID = int64(len(t.store.versions) + len(t.versions) + 1)
	t.versions = append(t.versions, *v)
	return nil
}

func (t *memTx) InsertNote(_ context.Context, n *models.RevisionNote) error {
	n.ID = int64(len(t.store.notes) + len(t.notes) + 1)
	t.notes = append(t.notes, *n)
	return nil
}

func (t *memTx) ResolveNotes(context.Context, int64) error {
	t.resolve = true
	return nil
}

func (t *memTx) InsertTypesetting(_ context.Context, e *models.TypesettingEntry) error {
	e.ID = int64(len(t.store.typeset) + len(t.typeset) + 1)
	t.typeset = append(t.typeset, *e)
	return nil
}

type statusEvent struct {
	questionID int64
	actorID    int64
	from       workflow.Status
	to         workflow.Status
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []statusEvent
	content  []int64
}

func (r *recordingNotifier) StatusChanged(_ context.Context, q *models.Question, actor models.Actor, from workflow.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, statusEvent{questionID: q.ID, actorID: actor.ID, from: from, to: q.Status()})
}

func (r *recordingNotifier) ContentChanged(_ context.Context, q *models.Question, _ models.Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = append(r.content, q.ID)
}

type recordingQueue struct {
	mu       sync.Mutex
	payloads []queue.NotificationPayload
}

func (r *recordingQueue) EnqueueNotification(_ context.Context, p queue.NotificationPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return nil
}
