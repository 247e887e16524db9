package realtime

import "go.uber.org/zap"

// Broadcaster is the best-effort delivery channel. Every method is
// at-most-once: a push reaches whichever sessions are live right now, is never
// retried, and persists nothing. Offline clients catch up by polling the
// notification store, not by redelivery.
type Broadcaster interface {
	SendToUser(userID, event string, payload interface{})
	SendToExam(examID, event string, payload interface{})
	SendToStudyRoom(roomID, event string, payload interface{})
	SendToAll(event string, payload interface{})
}

// Hub routes events to live sessions via the room registry.
type Hub struct {
	registry *Registry
	log      *zap.SugaredLogger
}

func NewHub(registry *Registry, log *zap.SugaredLogger) *Hub {
	return &Hub{registry: registry, log: log}
}

// SendToUser pushes to every live connection of one user. A user with several
// tabs open receives the event once per tab.
func (h *Hub) SendToUser(userID, event string, payload interface{}) {
	h.sendToRoom(UserRoom(userID), event, payload)
}

// SendToExam pushes to every session subscribed to the exam's room.
func (h *Hub) SendToExam(examID, event string, payload interface{}) {
	h.sendToRoom(ExamRoom(examID), event, payload)
}

// SendToStudyRoom pushes to every member of the study room.
func (h *Hub) SendToStudyRoom(roomID, event string, payload interface{}) {
	h.sendToRoom(StudyRoom(roomID), event, payload)
}

// SendToAll pushes to every registered session regardless of room membership.
func (h *Hub) SendToAll(event string, payload interface{}) {
	for _, s := range h.registry.All() {
		s.Send(event, payload)
	}
}

func (h *Hub) sendToRoom(key RoomKey, event string, payload interface{}) {
	for _, s := range h.registry.Members(key) {
		s.Send(event, payload)
	}
}

// BroadcastRoomCount pushes the study room's current member count to its
// members. Called on join, leave and disconnect.
func (h *Hub) BroadcastRoomCount(roomID string) {
	count := h.registry.MemberCount(StudyRoom(roomID))
	h.SendToStudyRoom(roomID, "studyroom:users", map[string]interface{}{"count": count})
}

// NopBroadcaster satisfies Broadcaster without a live transport. Producers
// hold one before the socket layer is up; pushes silently go nowhere, which is
// the documented fail-soft behavior.
type NopBroadcaster struct{}

func (NopBroadcaster) SendToUser(string, string, interface{})      {}
func (NopBroadcaster) SendToExam(string, string, interface{})      {}
func (NopBroadcaster) SendToStudyRoom(string, string, interface{}) {}
func (NopBroadcaster) SendToAll(string, interface{})               {}
