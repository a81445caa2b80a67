package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"loom/internal/catalog"
	"loom/internal/domain/models/chat"
	llmsvc "loom/internal/domain/services/llm"
	"loom/internal/httputil"
	"loom/internal/llm"
	chatsvc "loom/internal/service/chat"
)

// ChatMessage is one message in the client's transcript payload.
type ChatMessage struct {
	Role        chat.Role         `json:"role"`
	Content     string            `json:"content"`
	Attachments []chat.Attachment `json:"attachments,omitempty"`
}

// ChatRequest is the body of POST /api/chat. The last message is the new
// user turn; earlier entries are the client's view of the transcript.
type ChatRequest struct {
	ConversationID string        `json:"conversationId"`
	Model          string        `json:"model"`
	Messages       []ChatMessage `json:"messages"`
}

// ChatHandler streams assistant turns over SSE.
type ChatHandler struct {
	registry     *llm.Registry
	completion   *chatsvc.Completion
	windower     chatsvc.Windower
	catalog      *catalog.Catalog
	defaultModel string
	logger       *slog.Logger
}

// NewChatHandler creates the chat streaming handler.
func NewChatHandler(
	registry *llm.Registry,
	completion *chatsvc.Completion,
	windower chatsvc.Windower,
	modelCatalog *catalog.Catalog,
	defaultModel string,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		registry:     registry,
		completion:   completion,
		windower:     windower,
		catalog:      modelCatalog,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// StreamChat handles POST /api/chat. It relays provider tokens to the client
// as SSE events, then persists the turn after the stream drains.
func (h *ChatHandler) StreamChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "messages is required")
		return
	}

	// The conversation id travels in the body or, for clients that stream
	// with a fixed body template, the X-Conversation-Id header.
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = r.Header.Get("X-Conversation-Id")
	}

	// Only a trailing user-role message is the inbound user turn. A
	// transcript ending on an assistant message (a replay after a
	// regenerate-delete, or a hostile payload) must not have that text
	// persisted as if the user wrote it.
	last := req.Messages[len(req.Messages)-1]
	var userText string
	var userAttachments []chat.Attachment
	if last.Role == chat.RoleUser {
		userText = last.Content
		userAttachments = last.Attachments
	}

	model := req.Model
	if model == "" {
		model = h.defaultModel
	}
	model = h.catalog.SelectModel(model, userAttachments)

	provider, err := h.registry.ForModel(model)
	if err != nil {
		handleError(w, err)
		return
	}

	history := h.windower.Trim(toDomainMessages(req.Messages))

	stream, err := provider.StreamChat(r.Context(), &llmsvc.Request{
		Model:    model,
		Messages: llm.BuildProviderMessages(history),
	})
	if err != nil {
		h.logger.Error("provider stream start failed", "model", model, "error", err)
		httputil.RespondError(w, http.StatusBadGateway, "model provider unavailable")
		return
	}

	sink, err := newSSESink(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	start, err := chat.FormatSSE(chat.SSEEventMessageStart, chat.MessageStartEvent{Model: model})
	if err == nil {
		sink.WriteEvent(start)
	}

	relay := chatsvc.NewRelay(sink, h.logger)
	relayErr := relay.Run(r.Context(), stream)

	// Write-back runs even when the client is gone or the stream broke:
	// whatever text arrived is kept. WithoutCancel detaches the persistence
	// writes from the request lifetime.
	finalizeCtx := context.WithoutCancel(r.Context())
	result, finErr := h.completion.Finalize(finalizeCtx, &chatsvc.FinalizeRequest{
		UserID:         userID,
		ConversationID: conversationID,
		Model:          model,
		UserText:       userText,
		Attachments:    userAttachments,
		AssistantText:  relay.Text(),
	})
	if finErr != nil {
		h.logger.Error("turn finalize failed",
			"user_id", userID,
			"conversation_id", conversationID,
			"error", finErr,
		)
	}

	if relayErr != nil {
		// The error event was already sent by the relay.
		return
	}

	complete := chat.TurnCompleteEvent{}
	if result != nil {
		complete.ConversationID = result.ConversationID
	}
	if frame, err := chat.FormatSSE(chat.SSEEventTurnComplete, complete); err == nil {
		sink.WriteEvent(frame)
	}
}

// toDomainMessages lifts the wire transcript into domain messages. Roles
// outside the known set are coerced to user so a stray value cannot reach a
// provider API.
func toDomainMessages(in []ChatMessage) []chat.Message {
	out := make([]chat.Message, 0, len(in))
	for _, m := range in {
		role := m.Role
		if !role.Valid() {
			role = chat.RoleUser
		}
		if strings.TrimSpace(m.Content) == "" && len(m.Attachments) == 0 {
			continue
		}
		out = append(out, chat.Message{
			Role:        role,
			Content:     m.Content,
			Attachments: m.Attachments,
		})
	}
	return out
}
