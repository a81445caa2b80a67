package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"loom/internal/domain"
	"loom/internal/domain/models/chat"
	"loom/internal/domain/repositories"
)

// CreateConversationRequest is the payload for explicit conversation
// creation.
type CreateConversationRequest struct {
	UserID string `json:"-"`
	Model  string `json:"model"`
	Title  string `json:"title"`
}

// EditMessageRequest edits a past user message and prunes everything after
// it.
type EditMessageRequest struct {
	UserID         string `json:"-"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"-"`
	Content        string `json:"content"`
}

// Conversations manages conversation CRUD and the edit/regenerate mutations.
// Pruning is a pure store mutation: neither entry point calls the model, so a
// failed regeneration call afterwards never leaves the store half-mutated
// beyond the deliberate truncation.
type Conversations struct {
	repo      repositories.ConversationRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewConversations creates the conversation service.
func NewConversations(
	repo repositories.ConversationRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *Conversations {
	return &Conversations{repo: repo, txManager: txManager, logger: logger}
}

// Create explicitly creates a conversation for the caller.
func (s *Conversations) Create(ctx context.Context, req *CreateConversationRequest) (*chat.Conversation, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Model, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conv := &chat.Conversation{
		UserID: req.UserID,
		Model:  req.Model,
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		conv.Title = &title
	}

	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation created", "id", conv.ID, "user_id", req.UserID)
	return conv, nil
}

// Get returns an owned conversation.
func (s *Conversations) Get(ctx context.Context, userID, conversationID string) (*chat.Conversation, error) {
	return s.repo.GetConversation(ctx, userID, conversationID)
}

// List returns the caller's conversations, most recently updated first.
func (s *Conversations) List(ctx context.Context, userID string) ([]chat.Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}

// ListMessages returns an owned conversation's messages in replay order.
func (s *Conversations) ListMessages(ctx context.Context, userID, conversationID string) ([]chat.Message, error) {
	return s.repo.ListMessages(ctx, userID, conversationID)
}

// Rename sets a conversation's title.
func (s *Conversations) Rename(ctx context.Context, userID, conversationID, title string) (*chat.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	// Ownership check before the write.
	if _, err := s.repo.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTitle(ctx, conversationID, title); err != nil {
		return nil, err
	}

	return s.repo.GetConversation(ctx, userID, conversationID)
}

// Delete removes an owned conversation and all its messages.
func (s *Conversations) Delete(ctx context.Context, userID, conversationID string) error {
	if err := s.repo.DeleteConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	s.logger.Info("conversation deleted", "id", conversationID, "user_id", userID)
	return nil
}

// EditUserMessage overwrites a past user message and deletes every message
// created strictly after it, discarding the old assistant reply and any later
// turns. Returns the number of pruned messages. The caller re-runs completion
// afterwards to obtain a fresh reply; this method does not call the model.
func (s *Conversations) EditUserMessage(ctx context.Context, req *EditMessageRequest) (int64, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.ConversationID, validation.Required.Error("conversationId is required")),
		validation.Field(&req.MessageID, validation.Required),
		validation.Field(&req.Content, validation.Required.Error("content is required")),
	); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.repo.GetConversation(ctx, req.UserID, req.ConversationID); err != nil {
		return 0, err
	}

	msg, err := s.repo.GetMessage(ctx, req.ConversationID, req.MessageID)
	if err != nil {
		return 0, err
	}
	if msg.Role != chat.RoleUser {
		return 0, fmt.Errorf("%w: message %s is not a user message", domain.ErrValidation, req.MessageID)
	}

	var pruned int64
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateMessageContent(txCtx, req.MessageID, req.Content); err != nil {
			return err
		}
		n, err := s.repo.DeleteMessagesAfter(txCtx, req.ConversationID, msg.CreatedAt)
		if err != nil {
			return err
		}
		pruned = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("message edited",
		"conversation_id", req.ConversationID,
		"message_id", req.MessageID,
		"pruned", pruned,
	)
	return pruned, nil
}

// RegenerateAssistantMessage deletes exactly one assistant message so the
// conversation ends on the preceding user turn, ready for a fresh completion.
// Returns the pruned count, always 1 on success.
func (s *Conversations) RegenerateAssistantMessage(ctx context.Context, userID, conversationID, messageID string) (int64, error) {
	if conversationID == "" {
		return 0, fmt.Errorf("%w: conversationId is required", domain.ErrValidation)
	}

	if _, err := s.repo.GetConversation(ctx, userID, conversationID); err != nil {
		return 0, err
	}

	msg, err := s.repo.GetMessage(ctx, conversationID, messageID)
	if err != nil {
		return 0, err
	}
	if msg.Role != chat.RoleAssistant {
		return 0, fmt.Errorf("%w: message %s is not an assistant message", domain.ErrValidation, messageID)
	}

	if err := s.repo.DeleteMessage(ctx, messageID); err != nil {
		return 0, err
	}

	s.logger.Info("assistant message pruned for regeneration",
		"conversation_id", conversationID,
		"message_id", messageID,
	)
	return 1, nil
}
