package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nfrund/talkio/internal/modules/chat/events"
	"github.com/nfrund/talkio/internal/presence"
)

const (
	// sendBufferSize is the per-connection outbound buffer. A full buffer
	// means the client is lagging and frames are dropped.
	sendBufferSize = 256

	// writeTimeout bounds a single WebSocket write.
	writeTimeout = 10 * time.Second
)

var validate = validator.New()

// Session owns one live WebSocket connection and walks it through its
// lifecycle: anonymous on connect, identified once the client announces who
// it is, terminated when the transport closes. All inbound events are
// dispatched from the read pump, so handling within one connection is
// sequential.
type Session struct {
	// ID uniquely identifies this connection, independent of the user identity.
	ID string

	conn     *websocket.Conn
	router   *Router
	registry *presence.Registry
	logger   *slog.Logger

	// identity is bound by the user:online event. It is only touched from
	// the read pump.
	identity string

	// mu guards send against concurrent close; Deliver takes the read lock.
	mu   sync.RWMutex
	send chan []byte
}

// NewSession creates a session in the anonymous state.
func NewSession(conn *websocket.Conn, router *Router, registry *presence.Registry) *Session {
	id := uuid.NewString()
	return &Session{
		ID:       id,
		conn:     conn,
		router:   router,
		registry: registry,
		send:     make(chan []byte, sendBufferSize),
		logger:   slog.Default().With("component", "chat_session", "sessionID", id),
	}
}

// Deliver implements presence.Conn. It never blocks: a frame that does not
// fit the buffer is dropped with a warning.
func (s *Session) Deliver(payload []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.send == nil {
		return false
	}

	select {
	case s.send <- payload:
		return true
	default:
		s.logger.Warn("session send buffer full, dropping frame")
		return false
	}
}

// readPump pumps frames from the WebSocket connection into the dispatcher.
// There is at most one reader per connection; it runs until the transport
// closes and then drives the session into the terminated state.
func (s *Session) readPump() {
	defer s.terminate()

	for {
		_, frame, err := s.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.logger.Info("websocket closed by client")
			} else if err != io.EOF {
				s.logger.Error("websocket read error", "error", err)
			}
			return
		}

		s.handleFrame(context.Background(), frame)
	}
}

// writePump pumps frames from the send channel to the WebSocket connection.
// It exits when the channel is closed at termination.
func (s *Session) writePump() {
	defer s.conn.Close(websocket.StatusNormalClosure, "")

	s.mu.RLock()
	ch := s.send
	s.mu.RUnlock()
	if ch == nil {
		return
	}

	for frame := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.conn.Write(ctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			s.logger.Error("websocket write error", "error", err)
			return
		}
	}
}

// handleFrame decodes one inbound frame and dispatches it. Malformed frames
// and events arriving before identification are dropped; they must never
// take the session down.
func (s *Session) handleFrame(ctx context.Context, frame []byte) {
	var env events.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		s.logger.Debug("dropping malformed frame", "error", err)
		return
	}

	switch env.Event {
	case events.EventUserOnline:
		var cmd events.UserOnline
		if !s.decode(env.Event, env.Payload, &cmd) {
			return
		}
		s.bindIdentity(cmd.User)

	case events.EventSendPrivate:
		var cmd events.SendPrivate
		if !s.decode(env.Event, env.Payload, &cmd) || !s.identified(env.Event) {
			return
		}
		s.router.RouteMessage(ctx, s, cmd)

	case events.EventTyping:
		var cmd events.Typing
		if !s.decode(env.Event, env.Payload, &cmd) || !s.identified(env.Event) {
			return
		}
		s.router.RouteTyping(cmd)

	case events.EventDeleteMessage:
		var cmd events.DeleteMessage
		if !s.decode(env.Event, env.Payload, &cmd) || !s.identified(env.Event) {
			return
		}
		s.router.RouteDeletion(ctx, s, cmd)

	default:
		s.logger.Debug("dropping unknown event", "event", env.Event)
	}
}

// bindIdentity moves the session to the identified state and registers it
// for presence. Re-announcing under a different identity releases the old
// binding first.
func (s *Session) bindIdentity(identity string) {
	if s.identity != "" && s.identity != identity {
		s.registry.Unregister(s.identity, s)
	}
	s.identity = identity
	s.registry.Register(identity, s)
}

// decode unmarshals and validates a command payload. Anything invalid is
// protocol misuse: drop and log.
func (s *Session) decode(event string, raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Debug("dropping undecodable payload", "event", event, "error", err)
		return false
	}
	if err := validate.Struct(out); err != nil {
		s.logger.Debug("dropping invalid payload", "event", event, "error", err)
		return false
	}
	return true
}

// identified reports whether the session may emit domain events yet.
func (s *Session) identified(event string) bool {
	if s.identity == "" {
		s.logger.Debug("dropping event from unidentified session", "event", event)
		return false
	}
	return true
}

// terminate is the session's final transition: presence is released (only
// while this connection is still the registered handle) and the send channel
// is closed so the write pump drains and exits. A terminated session is
// never reused.
func (s *Session) terminate() {
	if s.identity != "" {
		s.registry.Unregister(s.identity, s)
		s.identity = ""
	}

	s.mu.Lock()
	if s.send != nil {
		close(s.send)
		s.send = nil
	}
	s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close(websocket.StatusNormalClosure, "")
	}
}
