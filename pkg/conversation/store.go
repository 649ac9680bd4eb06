package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craftdesk/craftdesk/internal/db"
)

// Store provides database operations for conversations and messages.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a conversation Store backed by the given database
// connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const conversationColumns = `id, workspace_id, contact_id, last_message_at, created_at`
const messageColumns = `id, conversation_id, channel, content, is_from_customer, is_automated, is_read, provider_message_id, created_at`

func scanConversation(row pgx.Row) (Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.ContactID, &c.LastMessageAt, &c.CreatedAt)
	return c, err
}

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.Channel, &m.Content,
		&m.IsFromCustomer, &m.IsAutomated, &m.IsRead,
		&m.ProviderMessageID, &m.CreatedAt,
	)
	return m, err
}

// Get returns a single conversation by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return scanConversation(s.dbtx.QueryRow(ctx, query, id))
}

// FindOrCreateForContact returns the thread between a workspace and a
// contact, creating it on first message.
func (s *Store) FindOrCreateForContact(ctx context.Context, workspaceID, contactID uuid.UUID) (Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
	WHERE workspace_id = $1 AND contact_id = $2`
	c, err := scanConversation(s.dbtx.QueryRow(ctx, query, workspaceID, contactID))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, fmt.Errorf("finding conversation: %w", err)
	}

	insert := `INSERT INTO conversations (workspace_id, contact_id)
	VALUES ($1, $2)
	RETURNING ` + conversationColumns
	c, err = scanConversation(s.dbtx.QueryRow(ctx, insert, workspaceID, contactID))
	if err != nil {
		return Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}
	return c, nil
}

// AppendMessage adds a message to a conversation and bumps its
// last_message_at.
func (s *Store) AppendMessage(ctx context.Context, p AppendParams) (Message, error) {
	insert := `INSERT INTO messages (
		conversation_id, channel, content,
		is_from_customer, is_automated, is_read, provider_message_id
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + messageColumns
	m, err := scanMessage(s.dbtx.QueryRow(ctx, insert,
		p.ConversationID, p.Channel, p.Content,
		p.IsFromCustomer, p.IsAutomated, p.IsRead, p.ProviderMessageID,
	))
	if err != nil {
		return Message{}, fmt.Errorf("appending message: %w", err)
	}

	bump := `UPDATE conversations SET last_message_at = $2 WHERE id = $1`
	if _, err := s.dbtx.Exec(ctx, bump, p.ConversationID, m.CreatedAt); err != nil {
		return Message{}, fmt.Errorf("bumping conversation timestamp: %w", err)
	}
	return m, nil
}

// ListMessages returns a conversation's messages oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]Message, int, error) {
	var total int
	count := `SELECT count(*) FROM messages WHERE conversation_id = $1`
	if err := s.dbtx.QueryRow(ctx, count, conversationID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting messages: %w", err)
	}

	query := `SELECT ` + messageColumns + ` FROM messages
	WHERE conversation_id = $1
	ORDER BY created_at, id
	LIMIT $2 OFFSET $3`
	rows, err := s.dbtx.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var items []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.Channel, &m.Content,
			&m.IsFromCustomer, &m.IsAutomated, &m.IsRead,
			&m.ProviderMessageID, &m.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning message row: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating message rows: %w", err)
	}
	return items, total, nil
}

// ListByWorkspace returns a workspace's conversations, most recently
// active first.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]Conversation, int, error) {
	var total int
	count := `SELECT count(*) FROM conversations WHERE workspace_id = $1`
	if err := s.dbtx.QueryRow(ctx, count, workspaceID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting conversations: %w", err)
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations
	WHERE workspace_id = $1
	ORDER BY last_message_at DESC
	LIMIT $2 OFFSET $3`
	rows, err := s.dbtx.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var items []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.ContactID, &c.LastMessageAt, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning conversation row: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return items, total, nil
}

// LogParams holds parameters for LogActivity.
type LogParams struct {
	Channel           Channel
	Content           string
	IsFromCustomer    bool
	IsAutomated       bool
	IsRead            bool
	ProviderMessageID string
}

// LogActivity appends a message to the contact's thread, creating the
// thread on first use. This is the single entry point the notification
// pipeline uses to record what it did.
func (s *Store) LogActivity(ctx context.Context, workspaceID, contactID uuid.UUID, p LogParams) (Message, error) {
	conv, err := s.FindOrCreateForContact(ctx, workspaceID, contactID)
	if err != nil {
		return Message{}, err
	}
	return s.AppendMessage(ctx, AppendParams{
		ConversationID:    conv.ID,
		Channel:           p.Channel,
		Content:           p.Content,
		IsFromCustomer:    p.IsFromCustomer,
		IsAutomated:       p.IsAutomated,
		IsRead:            p.IsRead,
		ProviderMessageID: p.ProviderMessageID,
	})
}

// MarkRead marks all customer messages in a conversation as read.
func (s *Store) MarkRead(ctx context.Context, conversationID uuid.UUID) error {
	query := `UPDATE messages SET is_read = true
	WHERE conversation_id = $1 AND is_from_customer AND NOT is_read`
	if _, err := s.dbtx.Exec(ctx, query, conversationID); err != nil {
		return fmt.Errorf("marking conversation read: %w", err)
	}
	return nil
}
