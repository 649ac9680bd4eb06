// Package conversation keeps the per-contact message timeline. Every
// outbound notification, inbound form submission, and staff reply lands
// here as a message row, so the inbox shows one chronological thread per
// customer.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies how a message travelled. System messages record
// events that never left the platform (status changes, failed sends).
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelSMS    Channel = "sms"
	ChannelSystem Channel = "system"
)

// Conversation is the thread between a workspace and one contact.
type Conversation struct {
	ID            uuid.UUID `json:"id"`
	WorkspaceID   uuid.UUID `json:"workspace_id"`
	ContactID     uuid.UUID `json:"contact_id"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Message is a single timeline entry.
type Message struct {
	ID                uuid.UUID `json:"id"`
	ConversationID    uuid.UUID `json:"conversation_id"`
	Channel           Channel   `json:"channel"`
	Content           string    `json:"content"`
	IsFromCustomer    bool      `json:"is_from_customer"`
	IsAutomated       bool      `json:"is_automated"`
	IsRead            bool      `json:"is_read"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// AppendParams holds parameters for appending a message to a
// conversation.
type AppendParams struct {
	ConversationID    uuid.UUID
	Channel           Channel
	Content           string
	IsFromCustomer    bool
	IsAutomated       bool
	IsRead            bool
	ProviderMessageID string
}
