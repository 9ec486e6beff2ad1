package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nfrund/talkio/internal/database"
	"github.com/nfrund/talkio/internal/domain"
	"github.com/nfrund/talkio/internal/modules/chat/events"
	"github.com/nfrund/talkio/internal/presence"
	"github.com/nfrund/talkio/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopPublisher satisfies pubsub.Publisher where the test does not care about
// presence snapshots.
type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, msg pubsub.Message) error { return nil }
func (nopPublisher) Close() error                                          { return nil }

// recordingConn captures every frame delivered to it, decoded into envelopes.
type recordingConn struct {
	mu     sync.Mutex
	frames []events.Envelope
}

func (c *recordingConn) Deliver(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		panic(err)
	}
	c.frames = append(c.frames, env)
	return true
}

func (c *recordingConn) envelopes() []events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]events.Envelope, len(c.frames))
	copy(result, c.frames)
	return result
}

func (c *recordingConn) byEvent(event string) []json.RawMessage {
	var payloads []json.RawMessage
	for _, env := range c.envelopes() {
		if env.Event == event {
			payloads = append(payloads, env.Payload)
		}
	}
	return payloads
}

// failingStore fails every create, for exercising the failure acknowledgment.
type failingStore struct {
	domain.MessageRepository
}

func (failingStore) Create(ctx context.Context, msg domain.NewMessage) (*domain.Message, error) {
	return nil, errors.New("store unavailable")
}

func newTestRouter(t *testing.T) (*Router, *database.MemoryMessageStore, *presence.Registry) {
	t.Helper()
	store := database.NewMemoryMessageStore()
	registry := presence.NewRegistry(nopPublisher{})
	return NewRouter(store, registry), store, registry
}

func TestRouter_MessageToOfflineReceiverStillPersistsAndEchoes(t *testing.T) {
	router, store, _ := newTestRouter(t)
	alice := &recordingConn{}

	router.RouteMessage(context.Background(), alice, events.SendPrivate{
		Sender:   "alice",
		Receiver: "bob",
		Content:  "hi",
	})

	// Persisted despite bob being offline.
	conversation, err := store.ListConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.Len(t, conversation, 1)
	assert.False(t, conversation[0].Deleted)

	// Alice got the echo with the server-assigned fields.
	echoes := alice.byEvent(events.EventReceivePrivate)
	require.Len(t, echoes, 1)

	var msg domain.Message
	require.NoError(t, json.Unmarshal(echoes[0], &msg))
	assert.Equal(t, conversation[0].ID, msg.ID)
	assert.Equal(t, "hi", msg.Content)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestRouter_MessageToOnlineReceiverDeliversExactlyOncePlusEcho(t *testing.T) {
	router, _, registry := newTestRouter(t)
	alice := &recordingConn{}
	bob := &recordingConn{}
	registry.Register("bob", bob)

	router.RouteMessage(context.Background(), alice, events.SendPrivate{
		Sender:      "alice",
		Receiver:    "bob",
		MessageType: "image",
		ImageURL:    "/uploads/x.png",
	})

	aliceCopies := alice.byEvent(events.EventReceivePrivate)
	bobCopies := bob.byEvent(events.EventReceivePrivate)
	require.Len(t, aliceCopies, 1)
	require.Len(t, bobCopies, 1)

	// Both connections received the identical persisted message.
	var fromAlice, fromBob domain.Message
	require.NoError(t, json.Unmarshal(aliceCopies[0], &fromAlice))
	require.NoError(t, json.Unmarshal(bobCopies[0], &fromBob))
	assert.Equal(t, fromAlice.ID, fromBob.ID)
	assert.Equal(t, "/uploads/x.png", fromBob.ImageURL)
	assert.Equal(t, domain.MessageTypeImage, fromBob.MessageType)
}

func TestRouter_MessageTypeDefaultsToText(t *testing.T) {
	router, store, _ := newTestRouter(t)
	alice := &recordingConn{}

	router.RouteMessage(context.Background(), alice, events.SendPrivate{
		Sender:   "alice",
		Receiver: "bob",
		Content:  "plain",
	})

	conversation, err := store.ListConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.Len(t, conversation, 1)
	assert.Equal(t, domain.MessageTypeText, conversation[0].MessageType)
}

func TestRouter_PersistenceFailureSendsFailureAck(t *testing.T) {
	registry := presence.NewRegistry(nopPublisher{})
	router := NewRouter(failingStore{}, registry)
	alice := &recordingConn{}
	bob := &recordingConn{}
	registry.Register("bob", bob)

	router.RouteMessage(context.Background(), alice, events.SendPrivate{
		Sender:   "alice",
		Receiver: "bob",
		Content:  "doomed",
	})

	// Only the sender learns about the failure; nothing reaches the receiver.
	require.Len(t, alice.byEvent(events.EventMessageFailed), 1)
	assert.Empty(t, alice.byEvent(events.EventReceivePrivate))
	assert.Empty(t, bob.envelopes())
}

func TestRouter_TypingIsEphemeral(t *testing.T) {
	router, store, registry := newTestRouter(t)
	alice := &recordingConn{}
	bob := &recordingConn{}

	// Receiver offline: silent no-op.
	router.RouteTyping(events.Typing{Sender: "alice", Receiver: "bob"})
	assert.Empty(t, alice.envelopes())

	// Receiver online: forwarded, sender not echoed.
	registry.Register("bob", bob)
	router.RouteTyping(events.Typing{Sender: "alice", Receiver: "bob"})

	notifications := bob.byEvent(events.EventUserTyping)
	require.Len(t, notifications, 1)
	var typing events.UserTyping
	require.NoError(t, json.Unmarshal(notifications[0], &typing))
	assert.Equal(t, "alice", typing.Sender)
	assert.Empty(t, alice.envelopes())

	// Nothing was persisted.
	conversation, err := store.ListConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, conversation)
}

func TestRouter_DeletionClearsPayloadAndNotifiesBothParties(t *testing.T) {
	router, store, registry := newTestRouter(t)
	alice := &recordingConn{}
	bob := &recordingConn{}
	registry.Register("bob", bob)

	router.RouteMessage(context.Background(), alice, events.SendPrivate{
		Sender:   "alice",
		Receiver: "bob",
		Content:  "delete me",
	})

	var sent domain.Message
	echoes := alice.byEvent(events.EventReceivePrivate)
	require.Len(t, echoes, 1)
	require.NoError(t, json.Unmarshal(echoes[0], &sent))

	router.RouteDeletion(context.Background(), alice, events.DeleteMessage{
		MessageID: sent.ID,
		Sender:    "alice",
		Receiver:  "bob",
	})

	for name, conn := range map[string]*recordingConn{"alice": alice, "bob": bob} {
		deletions := conn.byEvent(events.EventMessageDeleted)
		require.Len(t, deletions, 1, "%s must be notified", name)

		var deleted events.MessageDeleted
		require.NoError(t, json.Unmarshal(deletions[0], &deleted))
		assert.Equal(t, sent.ID, deleted.MessageID)
	}

	stored, ok := store.Get(sent.ID)
	require.True(t, ok)
	assert.True(t, stored.Deleted)
	assert.Empty(t, stored.Content)
	assert.Empty(t, stored.ImageURL)

	// Deleting twice is idempotent beyond re-sending the notification.
	router.RouteDeletion(context.Background(), alice, events.DeleteMessage{
		MessageID: sent.ID,
		Sender:    "alice",
		Receiver:  "bob",
	})
	assert.Len(t, alice.byEvent(events.EventMessageDeleted), 2)
	stored, _ = store.Get(sent.ID)
	assert.True(t, stored.Deleted)
}

func TestRouter_DeletionOfUnknownMessageStillNotifies(t *testing.T) {
	router, _, _ := newTestRouter(t)
	alice := &recordingConn{}

	router.RouteDeletion(context.Background(), alice, events.DeleteMessage{
		MessageID: "message:missing",
		Sender:    "alice",
		Receiver:  "bob",
	})

	require.Len(t, alice.byEvent(events.EventMessageDeleted), 1)
}
