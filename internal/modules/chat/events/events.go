// Package events defines the realtime wire protocol: the envelope framing
// every frame and the payload types for each event. Event names are the
// original Talkio protocol's and must not change without a client migration.
package events

import (
	"encoding/json"
	"fmt"
)

// Client -> server events.
const (
	EventUserOnline    = "user:online"
	EventSendPrivate   = "send:private"
	EventTyping        = "typing"
	EventDeleteMessage = "delete:message"
)

// Server -> client events.
const (
	EventOnlineUsers    = "online:users"
	EventReceivePrivate = "receive:private"
	EventUserTyping     = "user:typing"
	EventMessageDeleted = "message:deleted"
	EventMessageFailed  = "message:failed"
)

// Envelope frames every event in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal wraps a payload in an envelope and encodes the whole frame.
func Marshal(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}

// UserOnline announces the connection's identity.
type UserOnline struct {
	User string `json:"user" validate:"required"`
}

// SendPrivate asks the server to persist and route a message.
type SendPrivate struct {
	Sender      string `json:"sender" validate:"required"`
	Receiver    string `json:"receiver" validate:"required"`
	Content     string `json:"content"`
	MessageType string `json:"messageType" validate:"omitempty,oneof=text image"`
	ImageURL    string `json:"imageUrl"`
}

// Typing signals that the sender is typing to the receiver. Ephemeral.
type Typing struct {
	Sender   string `json:"sender" validate:"required"`
	Receiver string `json:"receiver" validate:"required"`
}

// DeleteMessage asks the server to soft-delete a message and notify both parties.
type DeleteMessage struct {
	MessageID string `json:"messageId" validate:"required"`
	Sender    string `json:"sender" validate:"required"`
	Receiver  string `json:"receiver" validate:"required"`
}

// UserTyping is forwarded to the receiver of a typing event.
type UserTyping struct {
	Sender string `json:"sender"`
}

// MessageDeleted notifies both parties that a message was soft-deleted.
type MessageDeleted struct {
	MessageID string `json:"messageId"`
}

// MessageFailed tells the originating connection its send was not persisted.
type MessageFailed struct {
	Reason string `json:"reason"`
}
