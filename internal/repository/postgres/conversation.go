package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"loom/internal/domain"
	"loom/internal/domain/models/chat"
	"loom/internal/domain/repositories"
)

// ConversationRepository implements repositories.ConversationRepository using
// PostgreSQL.
type ConversationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new postgres-backed conversation store.
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &ConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateConversation inserts a new conversation and fills in its ID and
// timestamps.
func (r *ConversationRepository) CreateConversation(ctx context.Context, conv *chat.Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, model, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, created_at, updated_at
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		conv.UserID,
		conv.Title,
		conv.Model,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

// GetConversation retrieves an owned conversation by ID.
func (r *ConversationRepository) GetConversation(ctx context.Context, userID, conversationID string) (*chat.Conversation, error) {
	if uuid.Validate(conversationID) != nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, title, model, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Conversations)

	var conv chat.Conversation
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, conversationID, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.Model,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

// ListConversations retrieves the user's conversations, most recently updated
// first.
func (r *ConversationRepository) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, model, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []chat.Conversation
	for rows.Next() {
		var conv chat.Conversation
		err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.Title,
			&conv.Model,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	// Return empty slice instead of nil
	if convs == nil {
		convs = []chat.Conversation{}
	}

	return convs, nil
}

// UpdateTitle sets the conversation title and bumps updated_at.
func (r *ConversationRepository) UpdateTitle(ctx context.Context, conversationID, title string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, updated_at = now()
		WHERE id = $2
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, title, conversationID)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}

	return nil
}

// DeleteConversation removes an owned conversation; its messages go with it
// via the foreign key cascade.
func (r *ConversationRepository) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if uuid.Validate(conversationID) != nil {
		return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, conversationID, userID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}

	return nil
}

// AppendMessage inserts a message with a creation timestamp strictly greater
// than any existing message in the conversation, then bumps the parent's
// updated_at. The two statements are not wrapped in a transaction: a crash
// between them leaves a stale conversation timestamp that heals on the next
// append and never affects message ordering.
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *chat.Message) error {
	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (conversation_id, role, content, attachments, created_at, updated_at)
		SELECT $1, $2, $3, $4, ts.next, ts.next
		FROM (
			SELECT GREATEST(now(), COALESCE(MAX(created_at) + interval '1 microsecond', now())) AS next
			FROM %s
			WHERE conversation_id = $1
		) ts
		RETURNING id, created_at, updated_at
	`, r.tables.Messages, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		attachments,
	).Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("conversation %s: %w", msg.ConversationID, domain.ErrNotFound)
		}
		return fmt.Errorf("append message: %w", err)
	}

	bump := fmt.Sprintf(`
		UPDATE %s SET updated_at = $1 WHERE id = $2
	`, r.tables.Conversations)

	if _, err := executor.Exec(ctx, bump, msg.CreatedAt, msg.ConversationID); err != nil {
		return fmt.Errorf("bump conversation updated_at: %w", err)
	}

	return nil
}

// ListMessages retrieves the conversation's messages in ascending creation
// order, with created_at ties broken by insertion sequence. Returns an empty
// slice when the conversation is absent or owned by another user.
func (r *ConversationRepository) ListMessages(ctx context.Context, userID, conversationID string) ([]chat.Message, error) {
	if uuid.Validate(conversationID) != nil {
		return []chat.Message{}, nil
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.conversation_id, m.role, m.content, m.attachments, m.created_at, m.updated_at
		FROM %s m
		JOIN %s c ON c.id = m.conversation_id
		WHERE m.conversation_id = $1 AND c.user_id = $2
		ORDER BY m.created_at ASC, m.seq ASC
	`, r.tables.Messages, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []chat.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return msgs, nil
}

// GetMessage retrieves a message by id within a conversation.
func (r *ConversationRepository) GetMessage(ctx context.Context, conversationID, messageID string) (*chat.Message, error) {
	if uuid.Validate(conversationID) != nil || uuid.Validate(messageID) != nil {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		SELECT id, conversation_id, role, content, attachments, created_at, updated_at
		FROM %s
		WHERE id = $1 AND conversation_id = $2
	`, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	row := executor.QueryRow(ctx, query, messageID, conversationID)
	msg, err := scanMessage(row)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
		}
		return nil, err
	}

	return msg, nil
}

// UpdateMessageContent overwrites a message's content and bumps updated_at.
func (r *ConversationRepository) UpdateMessageContent(ctx context.Context, messageID, content string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $1, updated_at = now()
		WHERE id = $2
	`, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, content, messageID)
	if err != nil {
		return fmt.Errorf("update message content: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}

	return nil
}

// DeleteMessagesAfter removes every message whose creation timestamp is
// strictly greater than after. Returns the number removed.
func (r *ConversationRepository) DeleteMessagesAfter(ctx context.Context, conversationID string, after time.Time) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE conversation_id = $1 AND created_at > $2
	`, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, conversationID, after)
	if err != nil {
		return 0, fmt.Errorf("delete messages after: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteMessage removes a single message by id.
func (r *ConversationRepository) DeleteMessage(ctx context.Context, messageID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1
	`, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}

	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*chat.Message, error) {
	var msg chat.Message
	var attachments []byte
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.Role,
		&msg.Content,
		&attachments,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}

	return &msg, nil
}
