package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mark3labs/adreel/internal/workflow"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	streamBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamMessage is one frame on the session stream. The first frame has
// type "state"; each later frame carries an event and the state after it.
type streamMessage struct {
	Type  string          `json:"type"`
	Event *workflow.Event `json:"event,omitempty"`
	State stateResponse   `json:"state"`
}

// streamEvents upgrades to a WebSocket and forwards the session's bus events.
func (s *Server) streamEvents(c *gin.Context) {
	if s.opts.Bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event streaming is disabled"})
		return
	}
	sess := current(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade for session %s: %v", sess.id, err)
		return
	}
	defer conn.Close()

	events := make(chan workflow.Event, streamBuffer)
	sub, err := s.opts.Bus.Subscribe(sess.id, func(ev workflow.Event) {
		select {
		case events <- ev:
		default:
			s.log.Warn("dropping %s event for slow client of session %s", ev.Type, sess.id)
		}
	})
	if err != nil {
		s.log.Error("subscribing session %s: %v", sess.id, err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		return
	}
	defer func() { _ = sub.Unsubscribe() }()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(streamMessage{Type: "state", State: newStateResponse(sess.id, sess.machine.Snapshot())}); err != nil {
		return
	}

	// The reader only watches for close frames and pongs.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			s.log.Debug("websocket for session %s closed", sess.id)
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			msg := streamMessage{Type: "event", Event: &ev, State: newStateResponse(sess.id, sess.machine.Snapshot())}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
