package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout  = 5 * time.Second
	sendQueueSize = 64
)

// Envelope is the wire frame for every socket event, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Connection wraps one websocket. All writes funnel through a single writer
// goroutine so concurrent fan-out never races on the underlying socket.
// A full send queue drops the frame: delivery is at-most-once.
type Connection struct {
	id     string
	ws     *websocket.Conn
	sendCh chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	log    *zap.SugaredLogger
}

func NewConnection(ws *websocket.Conn, log *zap.SugaredLogger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:     uuid.NewString(),
		ws:     ws,
		sendCh: make(chan []byte, sendQueueSize),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	go c.writeLoop()
	return c
}

func (c *Connection) ID() string {
	return c.id
}

// Send queues an event frame for delivery. Never blocks: if the peer cannot
// keep up the frame is dropped and the loss logged.
func (c *Connection) Send(event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.log.Errorw("Failed to marshal event payload", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		c.log.Errorw("Failed to marshal event frame", "event", event, "error", err)
		return
	}

	select {
	case c.sendCh <- frame:
	case <-c.ctx.Done():
	default:
		c.log.Warnw("Send queue full, dropping frame", "event", event, "connection", c.id)
	}
}

func (c *Connection) writeLoop() {
	for {
		select {
		case frame := <-c.sendCh:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// ReadEnvelope blocks on the next client frame.
func (c *Connection) ReadEnvelope() (*Envelope, error) {
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Connection) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}
