// Package contact stores the customers a workspace talks to. Contacts
// are created lazily from public booking and contact form submissions
// and deduplicated by email within a workspace.
package contact

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a customer record scoped to one workspace.
type Contact struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
