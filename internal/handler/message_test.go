package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loom/internal/domain/models/chat"
	"loom/internal/httputil"
	"loom/internal/repository/memory"
	chatsvc "loom/internal/service/chat"
)

func newMessageTestStack(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	h := NewMessageHandler(chatsvc.NewConversations(store, memory.NewTxManager(), logger), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/messages/{id}", h.EditMessage)
	mux.HandleFunc("DELETE /api/messages/{id}", h.DeleteMessage)
	return mux, store
}

func appendMsg(t *testing.T, store *memory.Store, convID string, role chat.Role, content string) chat.Message {
	t.Helper()
	msg := chat.Message{ConversationID: convID, Role: role, Content: content}
	if err := store.AppendMessage(context.Background(), &msg); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return msg
}

func TestMessageHandler_EditMessage(t *testing.T) {
	mux, store := newMessageTestStack(t)

	convID := seedOwnedConversation(t, store, "user-1")
	user := appendMsg(t, store, convID, chat.RoleUser, "original")
	appendMsg(t, store, convID, chat.RoleAssistant, "reply")

	body := `{"conversationId":"` + convID + `","content":"edited"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/messages/"+user.ID, strings.NewReader(body))
	req = httputil.WithUserID(req, "user-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["deleted"] != 1 {
		t.Errorf("deleted = %d, want 1", resp["deleted"])
	}

	msgs, _ := store.ListMessages(context.Background(), "user-1", convID)
	if len(msgs) != 1 || msgs[0].Content != "edited" {
		t.Errorf("transcript after edit = %+v, want only the edited user turn", msgs)
	}
}

func TestMessageHandler_EditMessage_WrongRole(t *testing.T) {
	mux, store := newMessageTestStack(t)

	convID := seedOwnedConversation(t, store, "user-1")
	appendMsg(t, store, convID, chat.RoleUser, "q")
	assistant := appendMsg(t, store, convID, chat.RoleAssistant, "a")

	body := `{"conversationId":"` + convID + `","content":"tampered"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/messages/"+assistant.ID, strings.NewReader(body))
	req = httputil.WithUserID(req, "user-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMessageHandler_DeleteMessage(t *testing.T) {
	mux, store := newMessageTestStack(t)

	convID := seedOwnedConversation(t, store, "user-1")
	appendMsg(t, store, convID, chat.RoleUser, "q")
	assistant := appendMsg(t, store, convID, chat.RoleAssistant, "a")

	req := httptest.NewRequest(http.MethodDelete,
		"/api/messages/"+assistant.ID+"?conversationId="+convID, nil)
	req = httputil.WithUserID(req, "user-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	msgs, _ := store.ListMessages(context.Background(), "user-1", convID)
	if len(msgs) != 1 || msgs[0].Role != chat.RoleUser {
		t.Errorf("transcript after regenerate = %+v, want user turn only", msgs)
	}
}

func TestMessageHandler_DeleteMessage_MissingConversationID(t *testing.T) {
	mux, store := newMessageTestStack(t)

	convID := seedOwnedConversation(t, store, "user-1")
	appendMsg(t, store, convID, chat.RoleUser, "q")
	assistant := appendMsg(t, store, convID, chat.RoleAssistant, "a")

	req := httptest.NewRequest(http.MethodDelete, "/api/messages/"+assistant.ID, nil)
	req = httputil.WithUserID(req, "user-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
