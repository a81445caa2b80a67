package handler

import (
	"log/slog"
	"net/http"

	"loom/internal/httputil"
	chatsvc "loom/internal/service/chat"
)

// MessageHandler handles message mutation requests: editing a user message
// (which prunes everything after it) and deleting an assistant message ahead
// of a regeneration.
type MessageHandler struct {
	conversations *chatsvc.Conversations
	logger        *slog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(conversations *chatsvc.Conversations, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		conversations: conversations,
		logger:        logger,
	}
}

// EditMessage rewrites a user message and deletes every message after it, so
// the next chat request regenerates the tail from the edit point.
// PATCH /api/messages/{id}
func (h *MessageHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		ConversationID string `json:"conversationId"`
		Content        string `json:"content"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pruned, err := h.conversations.EditUserMessage(r.Context(), &chatsvc.EditMessageRequest{
		UserID:         userID,
		ConversationID: req.ConversationID,
		MessageID:      r.PathValue("id"),
		Content:        req.Content,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]int64{"deleted": pruned})
}

// DeleteMessage removes a single assistant message so the client can request
// a fresh generation in its place.
// DELETE /api/messages/{id}?conversationId=...
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conversationID := r.URL.Query().Get("conversationId")

	deleted, err := h.conversations.RegenerateAssistantMessage(r.Context(), userID, conversationID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
