package domain

import (
	"context"
	"time"
)

// MessageType distinguishes plain text messages from image messages.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// Message is one entry in a two-party conversation. Once Deleted is set the
// payload fields (Content, ImageURL) are cleared and never restored.
type Message struct {
	ID          string      `json:"id,omitempty"`
	Sender      string      `json:"sender"`
	Receiver    string      `json:"receiver"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"messageType"`
	ImageURL    string      `json:"imageUrl"`
	Deleted     bool        `json:"deleted"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// NewMessage carries the client-supplied fields of a message about to be
// persisted. The store assigns ID and CreatedAt.
type NewMessage struct {
	Sender      string
	Receiver    string
	Content     string
	MessageType MessageType
	ImageURL    string
}

// MessageRepository is the contract against the persistence collaborator.
type MessageRepository interface {
	// Create persists a new message and returns it with its assigned ID and timestamp.
	Create(ctx context.Context, msg NewMessage) (*Message, error)

	// MarkDeleted soft-deletes a message: the deleted flag is set and the
	// payload fields are cleared. An unknown ID is not an error.
	MarkDeleted(ctx context.Context, id string) error

	// ListConversation returns all non-deleted messages exchanged between two
	// users, oldest first.
	ListConversation(ctx context.Context, userA, userB string) ([]Message, error)
}
