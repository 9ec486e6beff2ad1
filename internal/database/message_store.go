package database

import (
	"context"
	"fmt"

	"github.com/nfrund/talkio/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// SurrealMessageStore implements domain.MessageRepository on top of SurrealDB.
type SurrealMessageStore struct {
	db *surrealdb.DB
}

// NewSurrealMessageStore creates a message store bound to an open connection.
func NewSurrealMessageStore(db *surrealdb.DB) *SurrealMessageStore {
	return &SurrealMessageStore{db: db}
}

// Create persists a new message. The database assigns the record ID and the
// creation timestamp, which is why we fetch the row back with RETURN AFTER.
func (s *SurrealMessageStore) Create(ctx context.Context, msg domain.NewMessage) (*domain.Message, error) {
	query := `CREATE message SET
		sender = $sender,
		receiver = $receiver,
		content = $content,
		messageType = $messageType,
		imageUrl = $imageUrl,
		deleted = false,
		createdAt = time::now()
	RETURN AFTER`
	params := map[string]any{
		"sender":      msg.Sender,
		"receiver":    msg.Receiver,
		"content":     msg.Content,
		"messageType": string(msg.MessageType),
		"imageUrl":    msg.ImageURL,
	}

	created, err := QueryOne[domain.Message](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("message was not created or could not be fetched")
	}

	return created, nil
}

// MarkDeleted soft-deletes a message, clearing its payload in the same
// statement so the content can never resurface. Updating a non-existent ID
// is a no-op by contract.
func (s *SurrealMessageStore) MarkDeleted(ctx context.Context, id string) error {
	query := `UPDATE message SET deleted = true, content = "", imageUrl = "" WHERE id = $id`
	if err := Execute(ctx, s.db, query, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("failed to mark message deleted: %w", err)
	}
	return nil
}

// ListConversation returns the non-deleted messages exchanged between two
// users in either direction, oldest first.
func (s *SurrealMessageStore) ListConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	query := `SELECT * FROM message
		WHERE ((sender = $a AND receiver = $b) OR (sender = $b AND receiver = $a))
		AND deleted != true
		ORDER BY createdAt ASC`
	params := map[string]any{"a": userA, "b": userB}

	messages, err := Query[domain.Message](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}
	return messages, nil
}
