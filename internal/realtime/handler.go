package realtime

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handler upgrades HTTP requests to websockets and dispatches client events
// onto the room registry.
type Handler struct {
	registry *Registry
	hub      *Hub
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

func NewHandler(registry *Registry, hub *Hub, log *zap.SugaredLogger) *Handler {
	return &Handler{
		registry: registry,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the SPA origin; auth happens per
			// event, not at upgrade time.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Serve handles GET /ws.
func (h *Handler) Serve(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	conn := NewConnection(ws, h.log)
	h.registry.Add(conn)
	h.log.Infow("Socket connected", "connection", conn.ID())

	go h.readLoop(conn)
	return nil
}

func (h *Handler) readLoop(conn *Connection) {
	defer h.disconnect(conn)

	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			return
		}
		h.dispatch(conn, env)
	}
}

func (h *Handler) dispatch(conn *Connection, env *Envelope) {
	id, ok := decodeID(env.Data)
	if !ok {
		h.log.Warnw("Ignoring event with bad payload", "event", env.Event, "connection", conn.ID())
		return
	}

	switch env.Event {
	case "join:user":
		h.registry.Join(conn, UserRoom(id))
	case "join:exam":
		h.registry.Join(conn, ExamRoom(id))
	case "leave:exam":
		h.registry.Leave(conn, ExamRoom(id))
	case "join:studyroom":
		h.registry.Join(conn, StudyRoom(id))
		h.hub.BroadcastRoomCount(id)
	case "leave:studyroom":
		h.registry.Leave(conn, StudyRoom(id))
		h.hub.BroadcastRoomCount(id)
	default:
		h.log.Warnw("Unknown socket event", "event", env.Event, "connection", conn.ID())
	}
}

func (h *Handler) disconnect(conn *Connection) {
	left := h.registry.Remove(conn)
	conn.Close()

	// Members of any study room the socket was in need a fresh count.
	for _, key := range left {
		if key.Family == FamilyStudyRoom {
			h.hub.BroadcastRoomCount(key.ID)
		}
	}
	h.log.Infow("Socket disconnected", "connection", conn.ID())
}

// decodeID accepts either a bare JSON string or {"id": "..."} as the event
// payload; the SPA has emitted both shapes over time.
func decodeID(data json.RawMessage) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil && id != "" {
		return id, true
	}
	var wrapped struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.ID != "" {
		return wrapped.ID, true
	}
	return "", false
}
