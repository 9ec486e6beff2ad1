package presence

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/nfrund/talkio/internal/pubsub"
)

// TopicUsersUpdate carries the full online-user snapshot published after
// every registry change.
const TopicUsersUpdate = "presence.users.update"

// Update is the payload published on TopicUsersUpdate.
type Update struct {
	Users []string `json:"users"`
}

// Conn is the handle the registry keeps for one live realtime connection.
// Deliver must not block; it reports whether the frame was accepted.
type Conn interface {
	Deliver(payload []byte) bool
}

// Registry maps a user identity to its single active connection. A new
// registration for the same identity overwrites the previous handle
// (last registration wins); absence from the registry means offline.
type Registry struct {
	mu        sync.RWMutex
	conns     map[string]Conn
	publisher pubsub.Publisher
	logger    *slog.Logger
}

// NewRegistry creates an empty registry that publishes snapshot updates
// through the given publisher.
func NewRegistry(publisher pubsub.Publisher) *Registry {
	return &Registry{
		conns:     make(map[string]Conn),
		publisher: publisher,
		logger:    slog.Default().With("component", "presence"),
	}
}

// Register binds an identity to a connection, unconditionally replacing any
// existing handle for that identity, and publishes the new snapshot.
func (r *Registry) Register(identity string, conn Conn) {
	r.mu.Lock()
	r.conns[identity] = conn
	users := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Info("user online", "identity", identity, "online_count", len(users))
	r.publishSnapshot(users)
}

// Unregister removes the identity's mapping only while conn is still the
// registered handle. A stale disconnect arriving after a reconnect must not
// evict the newer connection.
func (r *Registry) Unregister(identity string, conn Conn) {
	r.mu.Lock()
	current, ok := r.conns[identity]
	if !ok || current != conn {
		r.mu.Unlock()
		r.logger.Debug("ignoring stale unregister", "identity", identity)
		return
	}
	delete(r.conns, identity)
	users := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Info("user offline", "identity", identity, "online_count", len(users))
	r.publishSnapshot(users)
}

// Lookup returns the connection currently registered for an identity.
func (r *Registry) Lookup(identity string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[identity]
	return conn, ok
}

// Snapshot returns all currently online identities, sorted for stable output.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []string {
	users := make([]string, 0, len(r.conns))
	for identity := range r.conns {
		users = append(users, identity)
	}
	sort.Strings(users)
	return users
}

// Broadcast delivers a payload to every registered connection. Delivery is
// non-blocking per connection; lagging clients drop the frame.
func (r *Registry) Broadcast(payload []byte) {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		conn.Deliver(payload)
	}
}

// publishSnapshot pushes the full online-user set onto the bus. Publishing
// happens outside the registry lock.
func (r *Registry) publishSnapshot(users []string) {
	payload, err := json.Marshal(Update{Users: users})
	if err != nil {
		r.logger.Error("failed to marshal presence update", "error", err)
		return
	}

	msg := pubsub.Message{
		Topic:   TopicUsersUpdate,
		Payload: payload,
	}
	if err := r.publisher.Publish(context.Background(), msg); err != nil {
		r.logger.Error("failed to publish presence update", "error", err, "topic", TopicUsersUpdate)
	}
}
