package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nfrund/talkio/internal/domain"
)

// MemoryMessageStore is an in-memory domain.MessageRepository. It backs
// APP_STORE=memory, which lets the server run without the persistence
// collaborator (development, integration tests).
type MemoryMessageStore struct {
	mu       sync.Mutex
	seq      int
	messages []domain.Message
}

// NewMemoryMessageStore creates an empty in-memory message store.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{}
}

// Create appends a message, assigning a sequential record ID and the
// creation timestamp.
func (s *MemoryMessageStore) Create(ctx context.Context, msg domain.NewMessage) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	stored := domain.Message{
		ID:          fmt.Sprintf("message:%06d", s.seq),
		Sender:      msg.Sender,
		Receiver:    msg.Receiver,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		ImageURL:    msg.ImageURL,
		CreatedAt:   time.Now().UTC(),
	}
	s.messages = append(s.messages, stored)

	return &stored, nil
}

// MarkDeleted soft-deletes a message and clears its payload. Unknown IDs are
// a no-op, and re-deleting an already deleted message changes nothing.
func (s *MemoryMessageStore) MarkDeleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Deleted = true
			s.messages[i].Content = ""
			s.messages[i].ImageURL = ""
			return nil
		}
	}
	return nil
}

// ListConversation returns the non-deleted messages between two users in
// either direction. Insertion order is creation order, so no sort is needed.
func (s *MemoryMessageStore) ListConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Message
	for _, m := range s.messages {
		if m.Deleted {
			continue
		}
		if (m.Sender == userA && m.Receiver == userB) || (m.Sender == userB && m.Receiver == userA) {
			result = append(result, m)
		}
	}
	return result, nil
}

// Get returns a message by ID, mainly for inspecting state in tests.
func (s *MemoryMessageStore) Get(id string) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Message{}, false
}
