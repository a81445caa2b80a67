package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"loom/internal/config"
	"loom/internal/domain"
	"loom/internal/domain/models/chat"
	"loom/internal/domain/repositories"
)

// FinalizeRequest carries everything the completion handler needs after the
// client-facing stream has drained.
type FinalizeRequest struct {
	UserID         string
	ConversationID string // as supplied by the client; empty for a new chat
	Model          string
	UserText       string
	Attachments    []chat.Attachment
	AssistantText  string // accumulated by the relay, possibly partial
}

// FinalizeResult reports what the completion handler persisted.
type FinalizeResult struct {
	ConversationID     string
	UserPersisted      bool
	AssistantPersisted bool
}

// Completion governs one request/response chat cycle's write-back: resolve
// the conversation, de-duplicate the inbound user turn, persist both turns,
// derive the title. It never calls the model.
type Completion struct {
	repo   repositories.ConversationRepository
	logger *slog.Logger
}

// NewCompletion creates the turn completion service.
func NewCompletion(repo repositories.ConversationRepository, logger *slog.Logger) *Completion {
	return &Completion{repo: repo, logger: logger}
}

// Finalize runs the post-stream persistence state machine. The caller is
// expected to log and swallow the returned error: by the time Finalize runs
// the client already has its answer, and a failed write-back must never be
// surfaced as a chat failure.
func (c *Completion) Finalize(ctx context.Context, req *FinalizeRequest) (*FinalizeResult, error) {
	if err := c.validateFinalizeRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Resolve the conversation. A missing id, or an id that does not resolve
	// to a conversation owned by the caller, creates a fresh conversation so
	// the turn is never silently lost.
	conv, err := c.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &FinalizeResult{ConversationID: conv.ID}

	// Regeneration detection: when the last persisted message is a user
	// message with exactly the submitted text, the client is replaying the
	// turn to regenerate the reply. Skip the user insert so it is not
	// duplicated. This is a heuristic: a user genuinely repeating an earlier
	// message verbatim is indistinguishable from a regeneration replay.
	persisted, err := c.repo.ListMessages(ctx, req.UserID, conv.ID)
	if err != nil {
		return result, fmt.Errorf("list persisted messages: %w", err)
	}

	skipUserTurn := false
	if req.UserText != "" && len(persisted) > 0 {
		last := persisted[len(persisted)-1]
		if last.Role == chat.RoleUser && last.Content == req.UserText {
			skipUserTurn = true
		}
	}

	if !skipUserTurn && (req.UserText != "" || len(req.Attachments) > 0) {
		userMsg := &chat.Message{
			ConversationID: conv.ID,
			Role:           chat.RoleUser,
			Content:        req.UserText,
			Attachments:    req.Attachments,
		}
		if err := c.repo.AppendMessage(ctx, userMsg); err != nil {
			return result, fmt.Errorf("persist user turn: %w", err)
		}
		result.UserPersisted = true
	}

	// Empty accumulated text (connection dropped before any token) writes no
	// assistant message: the conversation ends on the user turn and is safe
	// to regenerate.
	if req.AssistantText != "" {
		assistantMsg := &chat.Message{
			ConversationID: conv.ID,
			Role:           chat.RoleAssistant,
			Content:        req.AssistantText,
		}
		if err := c.repo.AppendMessage(ctx, assistantMsg); err != nil {
			return result, fmt.Errorf("persist assistant turn: %w", err)
		}
		result.AssistantPersisted = true
	}

	if err := c.updateTitle(ctx, req, conv); err != nil {
		return result, err
	}

	return result, nil
}

func (c *Completion) resolveConversation(ctx context.Context, req *FinalizeRequest) (*chat.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := c.repo.GetConversation(ctx, req.UserID, req.ConversationID)
		if err == nil {
			return conv, nil
		}
	}

	conv := &chat.Conversation{
		UserID: req.UserID,
		Model:  req.Model,
	}
	if err := c.repo.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	c.logger.Info("conversation created",
		"id", conv.ID,
		"model", conv.Model,
		"user_id", req.UserID,
	)
	return conv, nil
}

func (c *Completion) updateTitle(ctx context.Context, req *FinalizeRequest, conv *chat.Conversation) error {
	candidate := DeriveTitle(req.UserText)
	if candidate == "" {
		return nil
	}

	hasTitle := conv.Title != nil && strings.TrimSpace(*conv.Title) != ""
	if hasTitle && req.ConversationID != "" {
		return nil
	}

	if err := c.repo.UpdateTitle(ctx, conv.ID, candidate); err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

func (c *Completion) validateFinalizeRequest(req *FinalizeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Model, validation.Required),
	)
}

// DeriveTitle produces a conversation title from the first line of the user
// text, truncated to the title length cap.
func DeriveTitle(userText string) string {
	line, _, _ := strings.Cut(userText, "\n")
	line = strings.TrimSpace(line)
	runes := []rune(line)
	if len(runes) > config.MaxTitleLength {
		return string(runes[:config.MaxTitleLength])
	}
	return line
}
