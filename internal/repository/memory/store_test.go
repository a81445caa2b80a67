package memory

import (
	"context"
	"errors"
	"testing"

	"loom/internal/domain"
	"loom/internal/domain/models/chat"
)

func seedConv(t *testing.T, store *Store, userID string) *chat.Conversation {
	t.Helper()
	conv := &chat.Conversation{UserID: userID, Model: "gpt-4o-mini"}
	if err := store.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	return conv
}

func TestStore_AppendMessage_StrictlyMonotonicTimestamps(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	conv := seedConv(t, store, "user-1")

	// Rapid appends within one clock tick must still order strictly.
	for i := 0; i < 50; i++ {
		msg := &chat.Message{ConversationID: conv.ID, Role: chat.RoleUser, Content: "m"}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage(%d) error = %v", i, err)
		}
	}

	msgs, err := store.ListMessages(ctx, "user-1", conv.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 50 {
		t.Fatalf("stored %d messages, want 50", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if !msgs[i].CreatedAt.After(msgs[i-1].CreatedAt) {
			t.Fatalf("message %d created_at %v is not strictly after %v", i, msgs[i].CreatedAt, msgs[i-1].CreatedAt)
		}
	}
}

func TestStore_AppendMessage_BumpsConversationUpdatedAt(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	conv := seedConv(t, store, "user-1")

	msg := &chat.Message{ConversationID: conv.ID, Role: chat.RoleUser, Content: "hi"}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	got, _ := store.GetConversation(ctx, "user-1", conv.ID)
	if got.UpdatedAt.Before(msg.CreatedAt) {
		t.Errorf("conversation updated_at %v is behind message created_at %v", got.UpdatedAt, msg.CreatedAt)
	}
}

func TestStore_OwnershipScoping(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	conv := seedConv(t, store, "user-a")
	store.AppendMessage(ctx, &chat.Message{ConversationID: conv.ID, Role: chat.RoleUser, Content: "secret"})

	if _, err := store.GetConversation(ctx, "user-b", conv.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetConversation() as non-owner: error = %v, want ErrNotFound", err)
	}

	msgs, err := store.ListMessages(ctx, "user-b", conv.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("non-owner read %d messages, want 0", len(msgs))
	}

	if err := store.DeleteConversation(ctx, "user-b", conv.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteConversation() as non-owner: error = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteMessagesAfter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	conv := seedConv(t, store, "user-1")

	var pivot chat.Message
	for i := 0; i < 5; i++ {
		msg := chat.Message{ConversationID: conv.ID, Role: chat.RoleUser, Content: "m"}
		store.AppendMessage(ctx, &msg)
		if i == 1 {
			pivot = msg
		}
	}

	pruned, err := store.DeleteMessagesAfter(ctx, conv.ID, pivot.CreatedAt)
	if err != nil {
		t.Fatalf("DeleteMessagesAfter() error = %v", err)
	}
	if pruned != 3 {
		t.Errorf("pruned = %d, want 3", pruned)
	}

	msgs, _ := store.ListMessages(ctx, "user-1", conv.ID)
	if len(msgs) != 2 {
		t.Errorf("remaining = %d, want 2", len(msgs))
	}
	// The pivot itself survives.
	if msgs[len(msgs)-1].ID != pivot.ID {
		t.Errorf("last remaining message = %s, want pivot %s", msgs[len(msgs)-1].ID, pivot.ID)
	}
}

func TestStore_DeleteConversationRemovesMessages(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	conv := seedConv(t, store, "user-1")
	msg := chat.Message{ConversationID: conv.ID, Role: chat.RoleUser, Content: "m"}
	store.AppendMessage(ctx, &msg)

	if err := store.DeleteConversation(ctx, "user-1", conv.ID); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if _, err := store.GetMessage(ctx, conv.ID, msg.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetMessage() after conversation delete: error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListConversationsOrdering(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := seedConv(t, store, "user-1")
	second := seedConv(t, store, "user-1")

	// Touch the older conversation so it sorts first.
	store.AppendMessage(ctx, &chat.Message{ConversationID: first.ID, Role: chat.RoleUser, Content: "bump"})

	convs, err := store.ListConversations(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("listed %d conversations, want 2", len(convs))
	}
	if convs[0].ID != first.ID {
		t.Errorf("most recently active conversation = %s, want %s", convs[0].ID, first.ID)
	}
	_ = second
}
