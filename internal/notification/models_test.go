package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTypeEnumIsClosed(t *testing.T) {
	valid := []Type{
		TypeExamUpdate, TypeResult, TypeAdmitCard, TypeNewVacancy,
		TypeDeadline, TypeResource, TypeSystem, TypeUrgent,
	}
	for _, typ := range valid {
		assert.True(t, typ.Valid(), "type %q", typ)
	}
	for _, typ := range []Type{"", "gossip", "EXAM-UPDATE", "exam_update"} {
		assert.False(t, typ.Valid(), "type %q", typ)
	}
}

func TestForUserAnnotatesReadState(t *testing.T) {
	reader := primitive.NewObjectID()
	other := primitive.NewObjectID()
	readAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	n := &Notification{
		Title:  "Result declared",
		ReadBy: []ReadReceipt{{User: reader, ReadAt: readAt}},
	}

	view := n.ForUser(reader)
	assert.True(t, view.IsRead)
	if assert.NotNil(t, view.ReadAt) {
		assert.Equal(t, readAt, *view.ReadAt)
	}

	view = n.ForUser(other)
	assert.False(t, view.IsRead)
	assert.Nil(t, view.ReadAt)
}
