// Package workspace holds the tenant entity. A workspace is one customer
// business; every other row in the system is scoped to a workspace ID.
package workspace

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is one tenant business.
//
// EmailConfigured and SMSConfigured are denormalized hints set when an
// integration is first configured. They are never cleared on provider failure
// and can diverge from the integration rows; anything that gates a send must
// use the derived active-integration lookup in pkg/integration instead.
type Workspace struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	BusinessType string    `json:"business_type"`

	EmailConfigured bool `json:"email_configured"`
	SMSConfigured   bool `json:"sms_configured"`
	IsActive        bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
}
