package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"loom/internal/domain"
	"loom/internal/domain/models/chat"
	"loom/internal/domain/repositories"
)

// Store keeps conversations in-process. It implements the same contract as
// the postgres repository (ownership scoping, strict per-conversation
// timestamp monotonicity) and backs local development and service tests.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message // conversationID -> ascending order
}

// NewStore initializes an empty in-memory store.
func NewStore() *Store {
	return &Store{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

var _ repositories.ConversationRepository = (*Store)(nil)

func (s *Store) CreateConversation(_ context.Context, conv *chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conv.ID = uuid.New().String()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	s.conversations[conv.ID] = *conv
	return nil
}

func (s *Store) GetConversation(_ context.Context, userID, conversationID string) (*chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	out := conv
	return &out, nil
}

func (s *Store) ListConversations(_ context.Context, userID string) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := []chat.Conversation{}
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			convs = append(convs, conv)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (s *Store) UpdateTitle(_ context.Context, conversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	conv.Title = &title
	conv.UpdatedAt = time.Now().UTC()
	s.conversations[conversationID] = conv
	return nil
}

func (s *Store) DeleteConversation(_ context.Context, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	return nil
}

func (s *Store) AppendMessage(_ context.Context, msg *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID, domain.ErrNotFound)
	}

	// Strictly after any existing message, even when the clock has not moved.
	ts := time.Now().UTC()
	if existing := s.messages[msg.ConversationID]; len(existing) > 0 {
		last := existing[len(existing)-1].CreatedAt
		if !ts.After(last) {
			ts = last.Add(time.Microsecond)
		}
	}

	msg.ID = uuid.New().String()
	msg.CreatedAt = ts
	msg.UpdatedAt = ts
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)

	conv.UpdatedAt = ts
	s.conversations[msg.ConversationID] = conv
	return nil
}

func (s *Store) ListMessages(_ context.Context, userID, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return []chat.Message{}, nil
	}

	msgs := make([]chat.Message, len(s.messages[conversationID]))
	copy(msgs, s.messages[conversationID])
	return msgs, nil
}

func (s *Store) GetMessage(_ context.Context, conversationID, messageID string) (*chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, msg := range s.messages[conversationID] {
		if msg.ID == messageID {
			out := msg
			return &out, nil
		}
	}
	return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
}

func (s *Store) UpdateMessageContent(_ context.Context, messageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for convID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == messageID {
				msgs[i].Content = content
				msgs[i].UpdatedAt = time.Now().UTC()
				s.messages[convID] = msgs
				return nil
			}
		}
	}
	return fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
}

func (s *Store) DeleteMessagesAfter(_ context.Context, conversationID string, after time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[conversationID]
	kept := msgs[:0:0]
	var pruned int64
	for _, msg := range msgs {
		if msg.CreatedAt.After(after) {
			pruned++
			continue
		}
		kept = append(kept, msg)
	}
	s.messages[conversationID] = kept
	return pruned, nil
}

func (s *Store) DeleteMessage(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for convID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == messageID {
				s.messages[convID] = append(msgs[:i:i], msgs[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
}
