package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ExamPortal/internal/notification"
)

type memStore struct {
	mu      sync.Mutex
	records []*notification.Notification
}

func (m *memStore) Create(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now().UTC()
	m.records = append(m.records, n)
	return nil
}

func (m *memStore) FindByTitleAndSource(_ context.Context, title, source string) (*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.records {
		if n.Title == title && n.Provenance != nil && n.Provenance.Source == source {
			return n, nil
		}
	}
	return nil, nil
}

func (m *memStore) ExistsDeadlineSince(context.Context, primitive.ObjectID, time.Time) (bool, error) {
	return false, nil
}

func (m *memStore) MarkRead(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return nil
}

func (m *memStore) MarkAllRead(context.Context, primitive.ObjectID, []primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (m *memStore) UnreadCount(context.Context, primitive.ObjectID, []primitive.ObjectID) (int64, error) {
	return 0, nil
}

type nopBroadcaster struct{ all int }

func (b *nopBroadcaster) SendToUser(string, string, interface{})      {}
func (b *nopBroadcaster) SendToExam(string, string, interface{})      {}
func (b *nopBroadcaster) SendToStudyRoom(string, string, interface{}) {}
func (b *nopBroadcaster) SendToAll(string, interface{})               { b.all++ }

func TestIngestNotificationsMapsAndDeduplicates(t *testing.T) {
	log := zap.NewNop().Sugar()
	store := &memStore{}
	broadcast := &nopBroadcaster{}
	svc := NewService(NewClient(log), notification.NewService(store, broadcast, nil, nil, log), nil, nil, log)

	records := []ScrapedNotification{
		{Title: "SSC CGL 2026 out", Message: "Apply now", Type: "new-vacancy", Source: "board"},
		{Title: "SSC CGL 2026 out", Message: "Apply now", Type: "new-vacancy", Source: "board"},
		{Title: "Unknown type falls back", Message: "Still ingested", Type: "weird", Source: "board"},
	}

	created, err := svc.IngestNotifications(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, broadcast.all)

	for _, n := range store.records {
		assert.True(t, n.Type.Valid())
		require.NotNil(t, n.Provenance)
		assert.Equal(t, "board", n.Provenance.Source)
	}
}
