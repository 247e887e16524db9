package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ExamPortal/internal/exam"
	"ExamPortal/internal/notification"
	"ExamPortal/internal/queue"
)

// memExams mirrors the exam repository's filter semantics in memory.
type memExams struct {
	exams []*exam.Exam
}

func (m *memExams) CloseExpiredApplications(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, e := range m.exams {
		end := e.ImportantDates.ApplicationEndDate
		if e.Status == exam.StatusApplicationOpen && end != nil && end.Before(now) {
			e.Status = exam.StatusApplicationClosed
			n++
		}
	}
	return n, nil
}

func (m *memExams) CompleteFinishedExams(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, e := range m.exams {
		date := e.ImportantDates.ExamDate
		inScope := e.Status == exam.StatusApplicationClosed || e.Status == exam.StatusUpcoming
		if inScope && date != nil && date.Before(now) {
			e.Status = exam.StatusCompleted
			n++
		}
	}
	return n, nil
}

func (m *memExams) FindClosingWithin(_ context.Context, from, until time.Time) ([]*exam.Exam, error) {
	var out []*exam.Exam
	for _, e := range m.exams {
		end := e.ImportantDates.ApplicationEndDate
		if e.Status == exam.StatusApplicationOpen && end != nil && !end.Before(from) && !end.After(until) {
			out = append(out, e)
		}
	}
	return out, nil
}

// memNotifications implements notification.Store and RetentionStore over a slice.
type memNotifications struct {
	mu      sync.Mutex
	records []*notification.Notification
}

func (m *memNotifications) Create(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = primitive.NewObjectID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.IsActive = true
	m.records = append(m.records, n)
	return nil
}

func (m *memNotifications) FindByTitleAndSource(_ context.Context, title, source string) (*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.records {
		if n.Title == title && n.Provenance != nil && n.Provenance.Source == source {
			return n, nil
		}
	}
	return nil, nil
}

func (m *memNotifications) ExistsDeadlineSince(_ context.Context, examID primitive.ObjectID, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.records {
		if n.Type != notification.TypeDeadline || n.CreatedAt.Before(since) {
			continue
		}
		for _, id := range n.TargetExams {
			if id == examID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.records {
		if n.ID != id {
			continue
		}
		for _, r := range n.ReadBy {
			if r.User == userID {
				return nil
			}
		}
		n.ReadBy = append(n.ReadBy, notification.ReadReceipt{User: userID, ReadAt: time.Now().UTC()})
		return nil
	}
	return notification.ErrNotFound
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID primitive.ObjectID, _ []primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var marked int64
	for _, n := range m.records {
		read := false
		for _, r := range n.ReadBy {
			if r.User == userID {
				read = true
			}
		}
		if !read {
			n.ReadBy = append(n.ReadBy, notification.ReadReceipt{User: userID, ReadAt: time.Now().UTC()})
			marked++
		}
	}
	return marked, nil
}

func (m *memNotifications) UnreadCount(_ context.Context, userID primitive.ObjectID, _ []primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.records {
		read := false
		for _, r := range n.ReadBy {
			if r.User == userID {
				read = true
			}
		}
		if !read {
			count++
		}
	}
	return count, nil
}

func (m *memNotifications) PurgeExpired(_ context.Context, olderThan time.Time, excludeTypes []notification.Type) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	excluded := make(map[notification.Type]bool, len(excludeTypes))
	for _, t := range excludeTypes {
		excluded[t] = true
	}

	var kept []*notification.Notification
	var deleted int64
	for _, n := range m.records {
		if n.CreatedAt.Before(olderThan) && !excluded[n.Type] {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.records = kept
	return deleted, nil
}

// recorder captures delivery calls.
type recorder struct {
	mu    sync.Mutex
	calls []struct {
		method, target, event string
		payload               interface{}
	}
}

func (r *recorder) record(method, target, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, struct {
		method, target, event string
		payload               interface{}
	}{method, target, event, payload})
}

func (r *recorder) SendToUser(u, e string, p interface{})      { r.record("user", u, e, p) }
func (r *recorder) SendToExam(x, e string, p interface{})      { r.record("exam", x, e, p) }
func (r *recorder) SendToStudyRoom(s, e string, p interface{}) { r.record("studyroom", s, e, p) }
func (r *recorder) SendToAll(e string, p interface{})          { r.record("all", "", e, p) }

type fakeEnqueuer struct {
	tasks []string
}

func (f *fakeEnqueuer) Enqueue(taskType string, _ []byte) (string, error) {
	f.tasks = append(f.tasks, taskType)
	return "task-1", nil
}

func newTestScheduler(exams *memExams, store *memNotifications, delivery *recorder, now time.Time) *Scheduler {
	log := zap.NewNop().Sugar()
	producer := notification.NewService(store, delivery, nil, nil, log)
	s := NewScheduler(exams, producer, store, &fakeEnqueuer{}, log)
	s.now = func() time.Time { return now }
	return s
}

func openExam(name string, applicationEnd time.Time) *exam.Exam {
	return &exam.Exam{
		ID:     primitive.NewObjectID(),
		Name:   name,
		Status: exam.StatusApplicationOpen,
		ImportantDates: exam.ImportantDates{
			ApplicationEndDate: &applicationEnd,
		},
	}
}

func TestLifecycleTickClosesExpiredApplicationsForwardOnly(t *testing.T) {
	now := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
	e := openExam("SSC CGL 2026", now.Add(-time.Hour))
	exams := &memExams{exams: []*exam.Exam{e}}
	s := newTestScheduler(exams, &memNotifications{}, &recorder{}, now)

	require.NoError(t, s.RunLifecycleTick(context.Background()))
	assert.Equal(t, exam.StatusApplicationClosed, e.Status)

	// Second tick: no backward transition, no duplicate side effects.
	require.NoError(t, s.RunLifecycleTick(context.Background()))
	assert.Equal(t, exam.StatusApplicationClosed, e.Status)
}

func TestLifecycleTickCompletesFinishedExams(t *testing.T) {
	now := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
	examDate := now.Add(-24 * time.Hour)
	e := &exam.Exam{
		ID:     primitive.NewObjectID(),
		Name:   "IBPS PO 2026",
		Status: exam.StatusApplicationClosed,
		ImportantDates: exam.ImportantDates{
			ExamDate: &examDate,
		},
	}
	s := newTestScheduler(&memExams{exams: []*exam.Exam{e}}, &memNotifications{}, &recorder{}, now)

	require.NoError(t, s.RunLifecycleTick(context.Background()))
	assert.Equal(t, exam.StatusCompleted, e.Status)
}

func TestLifecycleTickTransitionsVisibleToDeadlineStep(t *testing.T) {
	// An exam whose window already ended is closed by step 1 and must not
	// receive a deadline warning in the same tick.
	now := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
	e := openExam("Expired window", now.Add(-time.Minute))
	store := &memNotifications{}
	s := newTestScheduler(&memExams{exams: []*exam.Exam{e}}, store, &recorder{}, now)

	require.NoError(t, s.RunLifecycleTick(context.Background()))
	assert.Empty(t, store.records)
}

func TestDeadlineWarningOncePerDay(t *testing.T) {
	now := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
	e := openExam("UPSC CSE 2026", now.Add(48*time.Hour))
	store := &memNotifications{}
	delivery := &recorder{}
	s := newTestScheduler(&memExams{exams: []*exam.Exam{e}}, store, delivery, now)

	require.NoError(t, s.RunLifecycleTick(context.Background()))
	require.NoError(t, s.RunLifecycleTick(context.Background()))

	require.Len(t, store.records, 1)
	assert.Equal(t, notification.TypeDeadline, store.records[0].Type)
}

func TestDeadlineWarningEndToEnd(t *testing.T) {
	now := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
	e := openExam("UPSC CSE 2026", now.Add(48*time.Hour))
	store := &memNotifications{}
	delivery := &recorder{}
	s := newTestScheduler(&memExams{exams: []*exam.Exam{e}}, store, delivery, now)

	require.NoError(t, s.RunLifecycleTick(context.Background()))

	require.Len(t, store.records, 1)
	n := store.records[0]
	assert.Equal(t, notification.TypeDeadline, n.Type)
	assert.Equal(t, []primitive.ObjectID{e.ID}, n.TargetExams)
	assert.Contains(t, n.Message, "2 day(s)")

	require.Len(t, delivery.calls, 1)
	call := delivery.calls[0]
	assert.Equal(t, "all", call.method)
	assert.Equal(t, "notification:deadline", call.event)
	payload, ok := call.payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, n.ID.Hex(), payload["id"])
	assert.Equal(t, e.ID.Hex(), payload["examId"])
	assert.Equal(t, n.Title, payload["title"])
	assert.Equal(t, n.Message, payload["message"])
}

func TestExamOutsideWindowGetsNoWarning(t *testing.T) {
	now := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
	e := openExam("Far-off exam", now.Add(10*24*time.Hour))
	store := &memNotifications{}
	s := newTestScheduler(&memExams{exams: []*exam.Exam{e}}, store, &recorder{}, now)

	require.NoError(t, s.RunLifecycleTick(context.Background()))
	assert.Empty(t, store.records)
}

func TestRetentionSweepKeepsRetainedTypes(t *testing.T) {
	now := time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	store := &memNotifications{records: []*notification.Notification{
		{ID: primitive.NewObjectID(), Type: notification.TypeSystem, CreatedAt: old},
		{ID: primitive.NewObjectID(), Type: notification.TypeExamUpdate, CreatedAt: old},
		{ID: primitive.NewObjectID(), Type: notification.TypeResult, CreatedAt: old},
		{ID: primitive.NewObjectID(), Type: notification.TypeSystem, CreatedAt: now.Add(-time.Hour)},
	}}
	s := newTestScheduler(&memExams{}, store, &recorder{}, now)

	require.NoError(t, s.RunRetentionSweep(context.Background()))

	require.Len(t, store.records, 3)
	for _, n := range store.records {
		if n.Type == notification.TypeSystem {
			// Only the recent system record survived.
			assert.True(t, n.CreatedAt.After(now.Add(-retentionAge)))
		}
	}
}

func TestSourcePullEnqueuesTask(t *testing.T) {
	enq := &fakeEnqueuer{}
	log := zap.NewNop().Sugar()
	producer := notification.NewService(&memNotifications{}, &recorder{}, nil, nil, log)
	s := NewScheduler(&memExams{}, producer, &memNotifications{}, enq, log)

	require.NoError(t, s.runSourcePull(context.Background()))
	assert.Equal(t, []string{queue.TaskPullSources}, enq.tasks)
}
