package repositories

import (
	"context"
	"time"

	"loom/internal/domain/models/chat"
)

// ConversationRepository is the durable store for conversations and their
// ordered messages. All lookups are scoped by the owning user; an id that
// exists but belongs to someone else behaves exactly like an absent id.
type ConversationRepository interface {
	// CreateConversation inserts a new conversation and fills in its ID and
	// timestamps.
	CreateConversation(ctx context.Context, conv *chat.Conversation) error

	// GetConversation returns the conversation or domain.ErrNotFound.
	GetConversation(ctx context.Context, userID, conversationID string) (*chat.Conversation, error)

	// ListConversations returns the user's conversations, most recently
	// updated first.
	ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error)

	// UpdateTitle sets the conversation title and bumps updated_at.
	UpdateTitle(ctx context.Context, conversationID, title string) error

	// DeleteConversation removes an owned conversation and all its messages.
	DeleteConversation(ctx context.Context, userID, conversationID string) error

	// AppendMessage inserts a message with a creation timestamp strictly
	// greater than any existing message in the conversation, and bumps the
	// conversation's updated_at. Fills in the message's ID and timestamps.
	AppendMessage(ctx context.Context, msg *chat.Message) error

	// ListMessages returns the conversation's messages in ascending creation
	// order. Returns an empty slice when the conversation is absent or owned
	// by another user.
	ListMessages(ctx context.Context, userID, conversationID string) ([]chat.Message, error)

	// GetMessage returns a message by id within a conversation, or
	// domain.ErrNotFound.
	GetMessage(ctx context.Context, conversationID, messageID string) (*chat.Message, error)

	// UpdateMessageContent overwrites a message's content and bumps its
	// updated_at.
	UpdateMessageContent(ctx context.Context, messageID, content string) error

	// DeleteMessagesAfter removes every message in the conversation whose
	// creation timestamp is strictly greater than after. Returns the number
	// of messages removed.
	DeleteMessagesAfter(ctx context.Context, conversationID string, after time.Time) (int64, error)

	// DeleteMessage removes a single message by id.
	DeleteMessage(ctx context.Context, messageID string) error
}
