package chat

import (
	"context"
	"log/slog"

	"github.com/nfrund/talkio/internal/domain"
	"github.com/nfrund/talkio/internal/modules/chat/events"
	"github.com/nfrund/talkio/internal/presence"
)

// Router fans a domain event out to its destinations: the receiver's live
// connection when one exists, and the originating connection as the
// acknowledgment channel.
type Router struct {
	store    domain.MessageRepository
	registry *presence.Registry
	logger   *slog.Logger
}

// NewRouter creates a delivery router over the given store and registry.
func NewRouter(store domain.MessageRepository, registry *presence.Registry) *Router {
	return &Router{
		store:    store,
		registry: registry,
		logger:   slog.Default().With("component", "chat_router"),
	}
}

// RouteMessage persists the message, then forwards it. The sender always
// gets the persisted message echoed back so its UI can pick up the
// server-assigned ID and timestamp; the receiver gets it only while online.
// Persisting before forwarding keeps receiver delivery order aligned with
// persistence order for any sender/receiver pair.
func (rt *Router) RouteMessage(ctx context.Context, origin presence.Conn, cmd events.SendPrivate) {
	messageType := domain.MessageType(cmd.MessageType)
	if messageType == "" {
		messageType = domain.MessageTypeText
	}

	msg, err := rt.store.Create(ctx, domain.NewMessage{
		Sender:      cmd.Sender,
		Receiver:    cmd.Receiver,
		Content:     cmd.Content,
		MessageType: messageType,
		ImageURL:    cmd.ImageURL,
	})
	if err != nil {
		rt.logger.Error("failed to persist message",
			"sender", cmd.Sender,
			"receiver", cmd.Receiver,
			"error", err)
		rt.deliver(origin, events.EventMessageFailed, events.MessageFailed{Reason: "message could not be stored"})
		return
	}

	payload, err := events.Marshal(events.EventReceivePrivate, msg)
	if err != nil {
		rt.logger.Error("failed to encode message event", "messageId", msg.ID, "error", err)
		return
	}

	if conn, ok := rt.registry.Lookup(cmd.Receiver); ok {
		conn.Deliver(payload)
	}
	origin.Deliver(payload)

	rt.logger.Debug("message routed", "messageId", msg.ID, "sender", cmd.Sender, "receiver", cmd.Receiver)
}

// RouteTyping forwards a typing notification to the receiver if online.
// Nothing is persisted and the sender gets no echo.
func (rt *Router) RouteTyping(cmd events.Typing) {
	conn, ok := rt.registry.Lookup(cmd.Receiver)
	if !ok {
		return
	}
	rt.deliver(conn, events.EventUserTyping, events.UserTyping{Sender: cmd.Sender})
}

// RouteDeletion marks the message deleted and notifies both parties. The
// notification goes out even when the store had nothing to update; store
// failures are logged, never surfaced to the client.
func (rt *Router) RouteDeletion(ctx context.Context, origin presence.Conn, cmd events.DeleteMessage) {
	if err := rt.store.MarkDeleted(ctx, cmd.MessageID); err != nil {
		rt.logger.Error("failed to mark message deleted", "messageId", cmd.MessageID, "error", err)
	}

	payload, err := events.Marshal(events.EventMessageDeleted, events.MessageDeleted{MessageID: cmd.MessageID})
	if err != nil {
		rt.logger.Error("failed to encode deletion event", "messageId", cmd.MessageID, "error", err)
		return
	}

	origin.Deliver(payload)
	if conn, ok := rt.registry.Lookup(cmd.Receiver); ok {
		conn.Deliver(payload)
	}
}

func (rt *Router) deliver(conn presence.Conn, event string, payload any) {
	frame, err := events.Marshal(event, payload)
	if err != nil {
		rt.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	conn.Deliver(frame)
}
