package chat

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nfrund/talkio/internal/modules/chat/events"
	"github.com/nfrund/talkio/internal/presence"
	"github.com/nfrund/talkio/internal/pubsub"
)

// PresenceSubscriber listens for presence snapshot updates on the bus and
// fans them out to every live connection as online:users events.
type PresenceSubscriber struct {
	subscriber pubsub.Subscriber
	registry   *presence.Registry
	logger     *slog.Logger
}

// NewPresenceSubscriber creates a new presence subscriber.
func NewPresenceSubscriber(subscriber pubsub.Subscriber, registry *presence.Registry) *PresenceSubscriber {
	return &PresenceSubscriber{
		subscriber: subscriber,
		registry:   registry,
		logger:     slog.Default().With("component", "chat_presence_subscriber"),
	}
}

// Start begins listening for presence updates. The subscription runs until
// the context is canceled.
func (ps *PresenceSubscriber) Start(ctx context.Context) {
	if err := ps.subscriber.Subscribe(ctx, presence.TopicUsersUpdate, ps.handleUpdate); err != nil {
		ps.logger.Error("failed to subscribe to presence updates", "error", err)
		return
	}
	ps.logger.Info("subscribed to presence updates", "topic", presence.TopicUsersUpdate)
}

// handleUpdate rebroadcasts a presence snapshot to all connected clients.
// The snapshot is a full replacement, not a diff.
func (ps *PresenceSubscriber) handleUpdate(ctx context.Context, msg pubsub.Message) error {
	var update presence.Update
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		ps.logger.Error("failed to unmarshal presence update", "error", err)
		return err
	}

	if update.Users == nil {
		update.Users = []string{}
	}

	frame, err := events.Marshal(events.EventOnlineUsers, update.Users)
	if err != nil {
		ps.logger.Error("failed to encode online users event", "error", err)
		return err
	}

	ps.registry.Broadcast(frame)
	return nil
}
