package web

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/fin-processor/backend/internal/events"
	"github.com/fin-processor/backend/internal/health"
	"github.com/fin-processor/backend/internal/upload"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypePong      = "pong"
	MsgTypeSession   = "session"
	MsgTypeHealth    = "health"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WSMessage is the envelope for every websocket frame.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// handleWebSocket pushes this session's state changes and every health
// change until the client goes away.
func (s *Server) handleWebSocket(c echo.Context) error {
	sess := sessionFrom(c)

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	log := s.log.WithField("session", sess.ID())
	log.Debug("websocket connected")

	sub, unsubscribe := s.cfg.Hub.Subscribe(16)
	defer unsubscribe()

	// reads happen on their own goroutine; all writes stay on this one
	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Debug("websocket read failed")
				}
				return
			}
			if msg.Type == MsgTypePing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	if err := s.send(ws, MsgTypeConnected, sess.ID(), s.view(sess)); err != nil {
		return nil
	}

	keepAlive := time.NewTicker(wsPingInterval)
	defer keepAlive.Stop()

	for {
		var err error
		select {
		case <-closed:
			log.Debug("websocket disconnected")
			return nil
		case <-s.baseCtx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(wsWriteWait))
			return nil
		case <-pings:
			err = s.send(ws, MsgTypePong, "", nil)
		case <-keepAlive.C:
			err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			err = s.forward(ws, sess, ev)
		}
		if err != nil {
			log.WithError(err).Debug("websocket write failed")
			return nil
		}
	}
}

func (s *Server) forward(ws *websocket.Conn, sess *upload.Session, ev events.Event) error {
	switch ev.Type {
	case events.TypeHealth:
		return s.send(ws, MsgTypeHealth, "", s.cfg.Monitor.Status())
	case events.TypeSession:
		if ev.SessionID != sess.ID() {
			return nil
		}
		sess.Touch()
		return s.send(ws, MsgTypeSession, sess.ID(), s.view(sess))
	}
	return nil
}

func (s *Server) send(ws *websocket.Conn, typ, id string, payload interface{}) error {
	msg := WSMessage{
		Type:      typ,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = raw
	}
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ws.WriteJSON(msg)
}

// ForwardHealth republishes monitor transitions on the hub until ctx ends.
func ForwardHealth(ctx context.Context, m *health.Monitor, hub *events.Hub) {
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case h, ok := <-ch:
			if !ok {
				return
			}
			hub.PublishHealth(h)
		}
	}
}
