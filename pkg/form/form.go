// Package form holds the intake forms a workspace publishes. Active
// form links are included in booking confirmation emails so customers
// can complete intake before their appointment.
package form

import (
	"time"

	"github.com/google/uuid"
)

// Form is a published intake form.
type Form struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
